package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
)

// maxLineageDepth bounds the ancestor walk so a cyclic ancestor_id chain
// cannot recurse forever.
const maxLineageDepth = 64

// CreatureRepository reads gotchis and taxonomy data and persists battle
// progress. It implements creature.Repository.
type CreatureRepository struct {
	db *pgxpool.Pool
}

// NewCreatureRepository creates a CreatureRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCreatureRepository(db *pgxpool.Pool) *CreatureRepository {
	return &CreatureRepository{db: db}
}

var _ creature.Repository = (*CreatureRepository)(nil)

// CreateSpecies inserts a species and returns it with ID set.
func (r *CreatureRepository) CreateSpecies(ctx context.Context, name, description string, ancestorID int64) (*creature.Species, error) {
	sp := creature.Species{Name: name, Description: description, AncestorID: ancestorID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO species (name, description, ancestor_id)
		VALUES ($1, $2, NULLIF($3, 0))
		RETURNING id`,
		name, description, ancestorID,
	).Scan(&sp.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting species: %w", err)
	}
	return &sp, nil
}

// AssignRole attaches the named role to a species, creating the role if needed.
func (r *CreatureRepository) AssignRole(ctx context.Context, speciesID int64, role string) error {
	_, err := r.db.Exec(ctx, `
		WITH role AS (
			INSERT INTO roles (name) VALUES ($2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO species_roles (species_id, role_id)
		SELECT $1, id FROM role
		ON CONFLICT DO NOTHING`,
		speciesID, role,
	)
	if err != nil {
		return fmt.Errorf("assigning role %q: %w", role, err)
	}
	return nil
}

// AssignZone places a species in the named zone, creating the zone if needed.
func (r *CreatureRepository) AssignZone(ctx context.Context, speciesID int64, zone string) error {
	_, err := r.db.Exec(ctx, `
		WITH zone AS (
			INSERT INTO zones (name) VALUES ($2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO species_zones (species_id, zone_id)
		SELECT $1, id FROM zone
		ON CONFLICT DO NOTHING`,
		speciesID, zone,
	)
	if err != nil {
		return fmt.Errorf("assigning zone %q: %w", zone, err)
	}
	return nil
}

// AddPredation records that predator preys on prey.
func (r *CreatureRepository) AddPredation(ctx context.Context, predator, prey int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO predation (predator_id, prey_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		predator, prey,
	)
	if err != nil {
		return fmt.Errorf("adding predation edge: %w", err)
	}
	return nil
}

// CreateCreature inserts a gotchi and returns it with ID set.
//
// Precondition: c.SpeciesID must reference an existing species; c.OwnerID must be unique.
func (r *CreatureRepository) CreateCreature(ctx context.Context, c *creature.Creature) (*creature.Creature, error) {
	out := *c
	born := c.BornAt
	if born.IsZero() {
		born = time.Now()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO gotchis (owner_id, species_id, name, level, experience, born_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, born_at`,
		c.OwnerID, c.SpeciesID, c.Name, c.Level(), c.Experience, born,
	).Scan(&out.ID, &out.BornAt)
	if err != nil {
		return nil, fmt.Errorf("inserting gotchi: %w", err)
	}
	return &out, nil
}

// GetCreatureByOwner returns the gotchi owned by userID or creature.ErrCreatureNotFound.
func (r *CreatureRepository) GetCreatureByOwner(ctx context.Context, userID string) (*creature.Creature, error) {
	var (
		c            creature.Creature
		fed, evolved *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, species_id, name, experience, born_at, last_fed_at, last_evolved_at
		FROM gotchis WHERE owner_id = $1`,
		userID,
	).Scan(&c.ID, &c.OwnerID, &c.SpeciesID, &c.Name, &c.Experience, &c.BornAt, &fed, &evolved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, creature.ErrCreatureNotFound
		}
		return nil, fmt.Errorf("querying gotchi by owner: %w", err)
	}
	if fed != nil {
		c.LastFedAt = *fed
	}
	if evolved != nil {
		c.LastEvolvedAt = *evolved
	}
	return &c, nil
}

// GetSpecies returns one species or creature.ErrSpeciesNotFound.
func (r *CreatureRepository) GetSpecies(ctx context.Context, id int64) (*creature.Species, error) {
	var sp creature.Species
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, COALESCE(ancestor_id, 0)
		FROM species WHERE id = $1`,
		id,
	).Scan(&sp.ID, &sp.Name, &sp.Description, &sp.AncestorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, creature.ErrSpeciesNotFound
		}
		return nil, fmt.Errorf("querying species: %w", err)
	}
	return &sp, nil
}

// GetAncestorChain walks ancestor_id upward from species id, nearest first.
// A cycle ends the walk at the first repeated species.
func (r *CreatureRepository) GetAncestorChain(ctx context.Context, id int64) ([]*creature.Species, error) {
	if _, err := r.GetSpecies(ctx, id); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		WITH RECURSIVE lineage (id, name, description, ancestor_id, depth, path) AS (
			SELECT s.id, s.name, s.description, s.ancestor_id, 1, ARRAY[$1::BIGINT, s.id]
			FROM species s
			JOIN species child ON child.ancestor_id = s.id
			WHERE child.id = $1 AND s.id <> $1
			UNION ALL
			SELECT s.id, s.name, s.description, s.ancestor_id, l.depth + 1, l.path || s.id
			FROM species s
			JOIN lineage l ON l.ancestor_id = s.id
			WHERE NOT s.id = ANY (l.path) AND l.depth < $2
		)
		SELECT id, name, description, COALESCE(ancestor_id, 0)
		FROM lineage ORDER BY depth ASC`,
		id, maxLineageDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("querying ancestor chain: %w", err)
	}
	defer rows.Close()

	chain := make([]*creature.Species, 0)
	for rows.Next() {
		var sp creature.Species
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.AncestorID); err != nil {
			return nil, fmt.Errorf("scanning ancestor row: %w", err)
		}
		chain = append(chain, &sp)
	}
	return chain, rows.Err()
}

// GetAssignedRoles returns the roles of species id ordered by role id.
func (r *CreatureRepository) GetAssignedRoles(ctx context.Context, id int64) ([]creature.Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name
		FROM roles r JOIN species_roles sr ON sr.role_id = r.id
		WHERE sr.species_id = $1 ORDER BY r.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (creature.Role, error) {
		var role creature.Role
		err := row.Scan(&role.ID, &role.Name)
		return role, err
	})
}

// GetZoneMembership returns the zones of species id ordered by zone id.
func (r *CreatureRepository) GetZoneMembership(ctx context.Context, id int64) ([]creature.Zone, error) {
	rows, err := r.db.Query(ctx, `
		SELECT z.id, z.name
		FROM zones z JOIN species_zones sz ON sz.zone_id = z.id
		WHERE sz.species_id = $1 ORDER BY z.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (creature.Zone, error) {
		var z creature.Zone
		err := row.Scan(&z.ID, &z.Name)
		return z, err
	})
}

// GetPredationEdges returns the prey species ids of species id.
func (r *CreatureRepository) GetPredationEdges(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT prey_id FROM predation WHERE predator_id = $1 ORDER BY prey_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying predation edges: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ListSpeciesInZones returns the distinct species living in any of zoneIDs,
// ordered by id.
func (r *CreatureRepository) ListSpeciesInZones(ctx context.Context, zoneIDs []int64) ([]*creature.Species, error) {
	if len(zoneIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT s.id, s.name, s.description, COALESCE(s.ancestor_id, 0)
		FROM species s JOIN species_zones sz ON sz.species_id = s.id
		WHERE sz.zone_id = ANY ($1)
		ORDER BY s.id`,
		zoneIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("listing species in zones: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*creature.Species, error) {
		var sp creature.Species
		err := row.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.AncestorID)
		return &sp, err
	})
}

// UpdateProgress persists level and experience for gotchi id.
//
// Postcondition: returns creature.ErrCreatureNotFound when no row matched.
func (r *CreatureRepository) UpdateProgress(ctx context.Context, id int64, level, experience int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE gotchis SET level = $2, experience = $3, updated_at = NOW()
		WHERE id = $1`,
		id, level, experience,
	)
	if err != nil {
		return fmt.Errorf("updating gotchi progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return creature.ErrCreatureNotFound
	}
	return nil
}
