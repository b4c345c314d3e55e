package creature

import (
	"context"
	"errors"
)

// ErrCreatureNotFound is returned when no creature matches a lookup.
var ErrCreatureNotFound = errors.New("creature not found")

// ErrSpeciesNotFound is returned when a species id does not exist.
var ErrSpeciesNotFound = errors.New("species not found")

// Repository is the read accessor for creatures and taxonomy data plus the
// single write the battle engine performs at settlement.
type Repository interface {
	// GetCreatureByOwner returns the creature owned by userID.
	GetCreatureByOwner(ctx context.Context, userID string) (*Creature, error)
	// GetSpecies returns one species.
	GetSpecies(ctx context.Context, id int64) (*Species, error)
	// GetAncestorChain returns the ancestors of species id, nearest first.
	GetAncestorChain(ctx context.Context, id int64) ([]*Species, error)
	// GetAssignedRoles returns the ecological roles of species id.
	GetAssignedRoles(ctx context.Context, id int64) ([]Role, error)
	// GetZoneMembership returns the zones species id lives in.
	GetZoneMembership(ctx context.Context, id int64) ([]Zone, error)
	// GetPredationEdges returns the ids of species that species id preys on.
	GetPredationEdges(ctx context.Context, id int64) ([]int64, error)
	// ListSpeciesInZones returns the distinct species living in any of zoneIDs.
	ListSpeciesInZones(ctx context.Context, zoneIDs []int64) ([]*Species, error)
	// UpdateProgress persists level and experience for creature id.
	UpdateProgress(ctx context.Context, id int64, level, experience int) error
}
