// Package creature defines the gotchi domain model, the level curve, and the
// read-only repository contract the battle engine consumes.
package creature

import (
	"strings"
	"time"
)

// Creature is a user-owned gotchi tied to a species record.
//
// ID is set by the persistence layer; CPU-generated opponents carry ID 0 and
// are never persisted.
type Creature struct {
	ID        int64
	OwnerID   string
	SpeciesID int64
	Name      string

	BornAt        time.Time
	LastFedAt     time.Time
	LastEvolvedAt time.Time

	// Experience is the lifetime total; it never decreases.
	Experience int
}

// Level derives the creature's level from its experience.
func (c *Creature) Level() int {
	return LevelFromExperience(c.Experience)
}

// IsCPU reports whether the creature is a generated, non-persisted opponent.
func (c *Creature) IsCPU() bool { return c.ID == 0 }

// Species is a taxonomy record.
type Species struct {
	ID          int64
	Name        string
	Description string
	// AncestorID is the species this one evolved from, or 0 for a base species.
	AncestorID int64
}

// Role is an ecological role assigned to a species (e.g. "Predator").
type Role struct {
	ID   int64
	Name string
}

// Zone is a habitat zone.
type Zone struct {
	ID   int64
	Name string
}

// Archetype is the stat/matchup class derived from a role name.
type Archetype string

const (
	Producer     Archetype = "producer"
	Predator     Archetype = "predator"
	Parasite     Archetype = "parasite"
	Decomposer   Archetype = "decomposer"
	Pollinator   Archetype = "pollinator"
	BaseConsumer Archetype = "base-consumer"
)

// ArchetypeOf classifies a role name. Unrecognized roles are base consumers.
func ArchetypeOf(roleName string) Archetype {
	name := strings.ToLower(roleName)
	for _, a := range []Archetype{Producer, Predator, Parasite, Decomposer, Pollinator} {
		if strings.Contains(name, string(a)) {
			return a
		}
	}
	return BaseConsumer
}

// ArchetypesOf classifies every role, deduplicated in first-seen order. A
// species without roles is a base consumer.
func ArchetypesOf(roles []Role) []Archetype {
	if len(roles) == 0 {
		return []Archetype{BaseConsumer}
	}
	seen := make(map[Archetype]bool, len(roles))
	out := make([]Archetype, 0, len(roles))
	for _, r := range roles {
		a := ArchetypeOf(r.Name)
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
