// Package stats derives gotchi combat statistics from taxonomy data.
package stats

import (
	"math"
	"regexp"
	"time"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/dice"
)

// Base holds unleveled stats.
type Base struct {
	HP      float64
	Attack  float64
	Defense float64
	Speed   float64
}

func (b Base) add(o Base) Base {
	return Base{b.HP + o.HP, b.Attack + o.Attack, b.Defense + o.Defense, b.Speed + o.Speed}
}

func (b Base) scale(o Base) Base {
	return Base{b.HP * o.HP, b.Attack * o.Attack, b.Defense * o.Defense, b.Speed * o.Speed}
}

func (b Base) plus(v float64) Base {
	return Base{b.HP + v, b.Attack + v, b.Defense + v, b.Speed + v}
}

// Snapshot is the stat block one combatant carries through a battle.
type Snapshot struct {
	HP       int
	MaxHP    int
	Attack   int
	Defense  int
	Speed    int
	Accuracy float64
	Evasion  float64

	Level      int
	Experience int
}

const (
	baseValue = 40.0
	// ancestorBonus is added to every stat when the species has an ancestor.
	ancestorBonus = 5.0
	agePerDay     = 0.1
	ageCap        = 10.0
	maxVariation  = 4
)

// archetypeProfiles are the multiplicative base curves per role archetype.
var archetypeProfiles = map[creature.Archetype]Base{
	creature.Producer:     {HP: 1.2, Attack: 0.8, Defense: 1.2, Speed: 0.8},
	creature.Predator:     {HP: 0.9, Attack: 1.3, Defense: 0.9, Speed: 1.1},
	creature.Parasite:     {HP: 0.8, Attack: 1.1, Defense: 0.9, Speed: 1.2},
	creature.Decomposer:   {HP: 1.1, Attack: 0.9, Defense: 1.1, Speed: 0.9},
	creature.Pollinator:   {HP: 0.9, Attack: 0.9, Defense: 0.9, Speed: 1.3},
	creature.BaseConsumer: {HP: 1.0, Attack: 1.0, Defense: 1.0, Speed: 1.0},
}

type keywordBonus struct {
	re    *regexp.Regexp
	delta Base
}

// keywordBonuses scan species descriptions for morphological and
// behavioral hints.
var keywordBonuses = []keywordBonus{
	{regexp.MustCompile(`(?i)\b(large|huge|giant|massive)\b`), Base{HP: 5, Defense: 2, Speed: -2}},
	{regexp.MustCompile(`(?i)\b(small|tiny|minute)\b`), Base{HP: -3, Speed: 4}},
	{regexp.MustCompile(`(?i)\b(fast|swift|quick|agile)\b`), Base{Speed: 5}},
	{regexp.MustCompile(`(?i)\b(slow|sluggish|sessile)\b`), Base{Speed: -5}},
	{regexp.MustCompile(`(?i)\b(shells?|armou?red|plated|scales?)\b`), Base{Defense: 5}},
	{regexp.MustCompile(`(?i)\b(claws?|fangs?|teeth|jaws?|venom(ous)?|stingers?)\b`), Base{Attack: 5}},
	{regexp.MustCompile(`(?i)\b(spines?|spikes?|thorns?|thorny)\b`), Base{Attack: 2, Defense: 3}},
	{regexp.MustCompile(`(?i)\b(soft|fragile|delicate)\b`), Base{Defense: -4}},
	{regexp.MustCompile(`(?i)\b(aggressive|territorial)\b`), Base{Attack: 3}},
}

// Calculator computes stats. The clock is injected so age bonuses are
// reproducible.
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a Calculator; a nil clock means time.Now.
func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// speciesBase folds the archetype curve of one species with the nearest
// ancestor's base, recursively, so inheritance compounds down a lineage.
func speciesBase(sp *creature.Species, roles []creature.Role, ancestors []creature.Lineage) Base {
	b := Base{baseValue, baseValue, baseValue, baseValue}
	for _, a := range creature.ArchetypesOf(roles) {
		b = b.scale(archetypeProfiles[a])
	}
	b = b.add(descriptionBonus(sp.Description))
	if len(ancestors) == 0 {
		return b
	}
	parent := speciesBase(ancestors[0].Species, ancestors[0].Roles, ancestors[1:])
	avg := b.add(parent)
	return Base{avg.HP / 2, avg.Attack / 2, avg.Defense / 2, avg.Speed / 2}.plus(ancestorBonus)
}

func descriptionBonus(desc string) Base {
	var out Base
	for _, kb := range keywordBonuses {
		if kb.re.MatchString(desc) {
			out = out.add(kb.delta)
		}
	}
	return out
}

// ComputeBaseStats returns p's base stats: archetype curve, ancestry
// averaging, description keywords, age and the creature's seeded variation.
//
// Postcondition: every stat >= 1.
func (c *Calculator) ComputeBaseStats(p *creature.Profile) Base {
	b := speciesBase(p.Species, p.Roles, p.Ancestors)

	if born := p.Creature.BornAt; !born.IsZero() {
		days := c.now().Sub(born).Hours() / 24
		b = b.plus(math.Max(0, math.Min(days*agePerDay, ageCap)))
	}

	src := dice.NewSeededSource(dice.SeedFrom("variation", p.Creature.ID))
	b = b.add(Base{
		HP:      float64(src.Intn(maxVariation)),
		Attack:  float64(src.Intn(maxVariation)),
		Defense: float64(src.Intn(maxVariation)),
		Speed:   float64(src.Intn(maxVariation)),
	})

	return Base{
		HP:      math.Max(1, b.HP),
		Attack:  math.Max(1, b.Attack),
		Defense: math.Max(1, b.Defense),
		Speed:   math.Max(1, b.Speed),
	}
}

// ComputeLeveledStats applies the level formula to p's base stats.
// HP = (2×base×level)/100 + level + 10; other stats add 5 instead.
//
// Postcondition: HP == MaxHP >= 1.
func (c *Calculator) ComputeLeveledStats(p *creature.Profile) Snapshot {
	return c.leveled(c.ComputeBaseStats(p), p.Creature.Experience)
}

func (c *Calculator) leveled(b Base, exp int) Snapshot {
	level := creature.LevelFromExperience(exp)
	scaled := func(base float64) int {
		return int(2*math.Floor(base)*float64(level)) / 100
	}
	hp := max(scaled(b.HP)+level+10, 1)
	return Snapshot{
		HP:         hp,
		MaxHP:      hp,
		Attack:     scaled(b.Attack) + 5,
		Defense:    scaled(b.Defense) + 5,
		Speed:      scaled(b.Speed) + 5,
		Accuracy:   1,
		Evasion:    1,
		Level:      level,
		Experience: exp,
	}
}
