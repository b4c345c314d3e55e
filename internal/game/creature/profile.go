package creature

import (
	"context"
	"fmt"
	"slices"
)

// Lineage is one ancestor species with its roles.
type Lineage struct {
	Species *Species
	Roles   []Role
}

// Profile is a read-only snapshot of everything the battle engine needs to
// know about one creature. It is built once per battle.
type Profile struct {
	Creature *Creature
	Species  *Species
	Roles    []Role
	Zones    []Zone
	// Ancestors are nearest first.
	Ancestors []Lineage
	// Prey holds the species ids this creature's species preys on.
	Prey []int64
}

// LoadProfile gathers c's species, roles, zones, ancestry and predation data.
//
// Precondition: repo and c must be non-nil.
func LoadProfile(ctx context.Context, repo Repository, c *Creature) (*Profile, error) {
	sp, err := repo.GetSpecies(ctx, c.SpeciesID)
	if err != nil {
		return nil, fmt.Errorf("loading species %d: %w", c.SpeciesID, err)
	}
	roles, err := repo.GetAssignedRoles(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for species %d: %w", sp.ID, err)
	}
	zones, err := repo.GetZoneMembership(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading zones for species %d: %w", sp.ID, err)
	}
	prey, err := repo.GetPredationEdges(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading predation edges for species %d: %w", sp.ID, err)
	}
	chain, err := repo.GetAncestorChain(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading ancestors for species %d: %w", sp.ID, err)
	}
	ancestors := make([]Lineage, 0, len(chain))
	for _, a := range chain {
		aRoles, err := repo.GetAssignedRoles(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("loading roles for ancestor %d: %w", a.ID, err)
		}
		ancestors = append(ancestors, Lineage{Species: a, Roles: aRoles})
	}
	return &Profile{
		Creature:  c,
		Species:   sp,
		Roles:     roles,
		Zones:     zones,
		Ancestors: ancestors,
		Prey:      prey,
	}, nil
}

// Level is the creature's current level.
func (p *Profile) Level() int { return p.Creature.Level() }

// RoleNames lists the assigned role names.
func (p *Profile) RoleNames() []string {
	out := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		out[i] = r.Name
	}
	return out
}

// Archetypes classifies the assigned roles.
func (p *Profile) Archetypes() []Archetype { return ArchetypesOf(p.Roles) }

// TypeNames lists the archetype names; these are what a move's type pattern
// is matched against.
func (p *Profile) TypeNames() []string {
	as := p.Archetypes()
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}

// Description is the species' free-text description.
func (p *Profile) Description() string { return p.Species.Description }

// Preys reports whether this creature's species preys on speciesID.
func (p *Profile) Preys(speciesID int64) bool {
	return slices.Contains(p.Prey, speciesID)
}

// ZoneIDs lists the ids of the zones the species lives in.
func (p *Profile) ZoneIDs() []int64 {
	out := make([]int64, len(p.Zones))
	for i, z := range p.Zones {
		out[i] = z.ID
	}
	return out
}
