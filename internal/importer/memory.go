package importer

import (
	"context"
	"sync"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
)

// MemorySeeder adapts a creature.MemoryRepository to Seeder for local runs
// without a database.
type MemorySeeder struct {
	repo *creature.MemoryRepository

	mu       sync.Mutex
	next     int64
	species  map[int64]*creature.Species
	roles    map[int64][]creature.Role
	zones    map[int64][]creature.Zone
	roleIDs  map[string]int64
	zoneIDs  map[string]int64
	gotchiID int64
}

// NewMemorySeeder wraps repo.
func NewMemorySeeder(repo *creature.MemoryRepository) *MemorySeeder {
	return &MemorySeeder{
		repo:    repo,
		species: map[int64]*creature.Species{},
		roles:   map[int64][]creature.Role{},
		zones:   map[int64][]creature.Zone{},
		roleIDs: map[string]int64{},
		zoneIDs: map[string]int64{},
	}
}

func (s *MemorySeeder) CreateSpecies(_ context.Context, name, description string, ancestorID int64) (*creature.Species, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	sp := &creature.Species{ID: s.next, Name: name, Description: description, AncestorID: ancestorID}
	s.species[sp.ID] = sp
	s.repo.AddSpecies(sp, nil, nil)
	out := *sp
	return &out, nil
}

func (s *MemorySeeder) AssignRole(_ context.Context, speciesID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roleIDs[role]
	if !ok {
		id = int64(len(s.roleIDs) + 1)
		s.roleIDs[role] = id
	}
	s.roles[speciesID] = append(s.roles[speciesID], creature.Role{ID: id, Name: role})
	s.repo.AddSpecies(s.species[speciesID], s.roles[speciesID], s.zones[speciesID])
	return nil
}

func (s *MemorySeeder) AssignZone(_ context.Context, speciesID int64, zone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.zoneIDs[zone]
	if !ok {
		id = int64(len(s.zoneIDs) + 1)
		s.zoneIDs[zone] = id
	}
	s.zones[speciesID] = append(s.zones[speciesID], creature.Zone{ID: id, Name: zone})
	s.repo.AddSpecies(s.species[speciesID], s.roles[speciesID], s.zones[speciesID])
	return nil
}

func (s *MemorySeeder) AddPredation(_ context.Context, predator, prey int64) error {
	s.repo.AddPredation(predator, prey)
	return nil
}

func (s *MemorySeeder) CreateCreature(_ context.Context, c *creature.Creature) (*creature.Creature, error) {
	s.mu.Lock()
	s.gotchiID++
	out := *c
	out.ID = s.gotchiID
	s.mu.Unlock()
	s.repo.AddCreature(&out)
	return &out, nil
}
