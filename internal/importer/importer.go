// Package importer seeds the creature taxonomy from YAML.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
)

// Seeder is the write side of the creature store the importer drives.
// postgres.CreatureRepository implements it.
type Seeder interface {
	CreateSpecies(ctx context.Context, name, description string, ancestorID int64) (*creature.Species, error)
	AssignRole(ctx context.Context, speciesID int64, role string) error
	AssignZone(ctx context.Context, speciesID int64, zone string) error
	AddPredation(ctx context.Context, predator, prey int64) error
	CreateCreature(ctx context.Context, c *creature.Creature) (*creature.Creature, error)
}

// Summary counts what a Run wrote.
type Summary struct {
	Species   int
	Roles     int
	Zones     int
	Predation int
	Gotchis   int
}

// Importer writes a Taxonomy through a Seeder.
type Importer struct {
	seeder Seeder
	logger *zap.Logger
}

// New constructs an Importer backed by the given Seeder.
//
// Precondition: seeder and logger must be non-nil.
func New(seeder Seeder, logger *zap.Logger) *Importer {
	return &Importer{seeder: seeder, logger: logger}
}

// Run seeds tx. Species are created ancestors first so every ancestor ID is
// known when its descendants are inserted.
//
// Precondition: tx must have passed Validate.
// Postcondition: on error the store may hold a partial import.
func (imp *Importer) Run(ctx context.Context, tx *Taxonomy) (Summary, error) {
	start := time.Now()
	var sum Summary

	order, err := tx.ordered()
	if err != nil {
		return sum, err
	}

	ids := make(map[string]int64, len(order))
	for _, sp := range order {
		var ancestorID int64
		if sp.Ancestor != "" {
			ancestorID = ids[NameToID(sp.Ancestor)]
		}
		created, err := imp.seeder.CreateSpecies(ctx, sp.Name, sp.Description, ancestorID)
		if err != nil {
			return sum, fmt.Errorf("species %q: %w", sp.Name, err)
		}
		ids[NameToID(sp.Name)] = created.ID
		sum.Species++

		for _, role := range sp.Roles {
			if err := imp.seeder.AssignRole(ctx, created.ID, role); err != nil {
				return sum, fmt.Errorf("species %q role %q: %w", sp.Name, role, err)
			}
			sum.Roles++
		}
		for _, zone := range sp.Zones {
			if err := imp.seeder.AssignZone(ctx, created.ID, zone); err != nil {
				return sum, fmt.Errorf("species %q zone %q: %w", sp.Name, zone, err)
			}
			sum.Zones++
		}
	}

	for _, p := range tx.Predation {
		if err := imp.seeder.AddPredation(ctx, ids[NameToID(p.Predator)], ids[NameToID(p.Prey)]); err != nil {
			return sum, fmt.Errorf("predation %s -> %s: %w", p.Predator, p.Prey, err)
		}
		sum.Predation++
	}

	for _, g := range tx.Gotchis {
		c := &creature.Creature{
			OwnerID:    g.Owner,
			SpeciesID:  ids[NameToID(g.Species)],
			Name:       g.Name,
			Experience: g.Experience,
		}
		if _, err := imp.seeder.CreateCreature(ctx, c); err != nil {
			return sum, fmt.Errorf("gotchi %q: %w", g.Name, err)
		}
		sum.Gotchis++
	}

	imp.logger.Info("taxonomy imported",
		zap.Int("species", sum.Species),
		zap.Int("roles", sum.Roles),
		zap.Int("zones", sum.Zones),
		zap.Int("predation", sum.Predation),
		zap.Int("gotchis", sum.Gotchis),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}
