package battle

import "github.com/cory-johannsen/gotchi/internal/game/creature"

const (
	advantage    = 1.2
	disadvantage = 0.8
)

// matchups[attacker][defender] is the multiplier a move of the attacker's
// archetype receives against a defender of the given archetype. Missing
// entries are neutral.
var matchups = map[creature.Archetype]map[creature.Archetype]float64{
	creature.Predator: {
		creature.BaseConsumer: advantage,
		creature.Pollinator:   advantage,
		creature.Producer:     disadvantage,
	},
	creature.Parasite: {
		creature.Predator:     advantage,
		creature.BaseConsumer: advantage,
		creature.Decomposer:   disadvantage,
	},
	creature.BaseConsumer: {
		creature.Producer: advantage,
		creature.Predator: disadvantage,
	},
	creature.Producer: {
		creature.Decomposer: disadvantage,
	},
	creature.Decomposer: {
		creature.Producer:   advantage,
		creature.Pollinator: disadvantage,
	},
	creature.Pollinator: {
		creature.Producer: advantage,
		creature.Predator: disadvantage,
	},
}

// Matchup returns the multiplier of a move tagged role against a target with
// the given archetypes: the product over every target archetype. An empty
// role is neutral.
func Matchup(role string, target []creature.Archetype) float64 {
	if role == "" {
		return 1
	}
	row := matchups[creature.ArchetypeOf(role)]
	m := 1.0
	for _, a := range target {
		if v, ok := row[a]; ok {
			m *= v
		}
	}
	return m
}
