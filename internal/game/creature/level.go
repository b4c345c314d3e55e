package creature

// MaxLevel is the highest reachable level.
const MaxLevel = 100

// ExperienceToNext returns the experience needed to advance from level to
// level+1: level × 10 × 1.5.
func ExperienceToNext(level int) int {
	return level * 10 * 3 / 2
}

// LevelFromExperience walks the curve from level 1, subtracting each level's
// threshold until the remainder no longer covers the next one.
//
// Postcondition: 1 <= result <= MaxLevel.
func LevelFromExperience(exp int) int {
	level := 1
	for level < MaxLevel && exp >= ExperienceToNext(level) {
		exp -= ExperienceToNext(level)
		level++
	}
	return level
}

// ExperienceForLevel returns the minimum lifetime experience for level.
func ExperienceForLevel(level int) int {
	total := 0
	for l := 1; l < level && l < MaxLevel; l++ {
		total += ExperienceToNext(l)
	}
	return total
}
