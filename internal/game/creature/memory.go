package creature

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository is an in-memory Repository used by tests and local runs.
// All methods are safe for concurrent use.
type MemoryRepository struct {
	mu        sync.RWMutex
	creatures map[int64]*Creature
	species   map[int64]*Species
	roles     map[int64][]Role
	zones     map[int64][]Zone
	prey      map[int64][]int64
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		creatures: make(map[int64]*Creature),
		species:   make(map[int64]*Species),
		roles:     make(map[int64][]Role),
		zones:     make(map[int64][]Zone),
		prey:      make(map[int64][]int64),
	}
}

// AddSpecies stores sp with its roles and zones.
func (m *MemoryRepository) AddSpecies(sp *Species, roles []Role, zones []Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.species[sp.ID] = sp
	m.roles[sp.ID] = roles
	m.zones[sp.ID] = zones
}

// AddPredation records that predator preys on prey.
func (m *MemoryRepository) AddPredation(predator, prey int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prey[predator] = append(m.prey[predator], prey)
}

// AddCreature stores a copy of c.
func (m *MemoryRepository) AddCreature(c *Creature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.creatures[c.ID] = &cp
}

// Creature returns a copy of the stored creature id.
func (m *MemoryRepository) Creature(id int64) (*Creature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creatures[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (m *MemoryRepository) GetCreatureByOwner(_ context.Context, userID string) (*Creature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.creatures {
		if c.OwnerID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCreatureNotFound
}

func (m *MemoryRepository) GetSpecies(_ context.Context, id int64) (*Species, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.species[id]
	if !ok {
		return nil, ErrSpeciesNotFound
	}
	return sp, nil
}

func (m *MemoryRepository) GetAncestorChain(_ context.Context, id int64) ([]*Species, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.species[id]
	if !ok {
		return nil, ErrSpeciesNotFound
	}
	var chain []*Species
	seen := map[int64]bool{id: true}
	for sp.AncestorID != 0 && !seen[sp.AncestorID] {
		next, ok := m.species[sp.AncestorID]
		if !ok {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
		sp = next
	}
	return chain, nil
}

func (m *MemoryRepository) GetAssignedRoles(_ context.Context, id int64) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roles[id]), nil
}

func (m *MemoryRepository) GetZoneMembership(_ context.Context, id int64) ([]Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.zones[id]), nil
}

func (m *MemoryRepository) GetPredationEdges(_ context.Context, id int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.prey[id]), nil
}

func (m *MemoryRepository) ListSpeciesInZones(_ context.Context, zoneIDs []int64) ([]*Species, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Species
	for id, zs := range m.zones {
		for _, z := range zs {
			if slices.Contains(zoneIDs, z.ID) {
				out = append(out, m.species[id])
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b *Species) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *MemoryRepository) UpdateProgress(_ context.Context, id int64, _ int, experience int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creatures[id]
	if !ok {
		return ErrCreatureNotFound
	}
	c.Experience = experience
	return nil
}
