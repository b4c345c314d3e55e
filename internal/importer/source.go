package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Taxonomy is the seed file layout: species with their roles and zones,
// predation edges between them and the gotchis handed to players.
type Taxonomy struct {
	Species   []SpeciesSpec   `yaml:"species"`
	Predation []PredationSpec `yaml:"predation"`
	Gotchis   []GotchiSpec    `yaml:"gotchis"`
}

// SpeciesSpec describes one species. Ancestor names another entry in the
// same file.
type SpeciesSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Ancestor    string   `yaml:"ancestor,omitempty"`
	Roles       []string `yaml:"roles"`
	Zones       []string `yaml:"zones"`
}

// PredationSpec is a predator -> prey edge by species name.
type PredationSpec struct {
	Predator string `yaml:"predator"`
	Prey     string `yaml:"prey"`
}

// GotchiSpec is a creature owned by a player.
type GotchiSpec struct {
	Owner      string `yaml:"owner"`
	Name       string `yaml:"name"`
	Species    string `yaml:"species"`
	Experience int    `yaml:"experience"`
}

// LoadFile reads and parses a taxonomy YAML file.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a taxonomy document.
//
// Postcondition: the result has passed Validate.
func Parse(data []byte) (*Taxonomy, error) {
	var tx Taxonomy
	if err := yaml.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Validate checks that every name reference resolves and that no species
// is its own ancestor.
func (tx *Taxonomy) Validate() error {
	known := make(map[string]SpeciesSpec, len(tx.Species))
	for _, sp := range tx.Species {
		id := NameToID(sp.Name)
		if id == "" {
			return fmt.Errorf("species with empty name")
		}
		if _, dup := known[id]; dup {
			return fmt.Errorf("duplicate species %q", sp.Name)
		}
		known[id] = sp
	}
	for _, sp := range tx.Species {
		if sp.Ancestor == "" {
			continue
		}
		if _, ok := known[NameToID(sp.Ancestor)]; !ok {
			return fmt.Errorf("species %q: unknown ancestor %q", sp.Name, sp.Ancestor)
		}
	}
	if _, err := tx.ordered(); err != nil {
		return err
	}
	for _, p := range tx.Predation {
		if _, ok := known[NameToID(p.Predator)]; !ok {
			return fmt.Errorf("predation: unknown predator %q", p.Predator)
		}
		if _, ok := known[NameToID(p.Prey)]; !ok {
			return fmt.Errorf("predation: unknown prey %q", p.Prey)
		}
	}
	owners := make(map[string]bool, len(tx.Gotchis))
	for _, g := range tx.Gotchis {
		if g.Owner == "" || g.Name == "" {
			return fmt.Errorf("gotchi needs an owner and a name")
		}
		if owners[g.Owner] {
			return fmt.Errorf("owner %q has more than one gotchi", g.Owner)
		}
		owners[g.Owner] = true
		if _, ok := known[NameToID(g.Species)]; !ok {
			return fmt.Errorf("gotchi %q: unknown species %q", g.Name, g.Species)
		}
		if g.Experience < 0 {
			return fmt.Errorf("gotchi %q: negative experience", g.Name)
		}
	}
	return nil
}

// ordered returns the species with every ancestor before its descendants.
func (tx *Taxonomy) ordered() ([]SpeciesSpec, error) {
	byID := make(map[string]SpeciesSpec, len(tx.Species))
	for _, sp := range tx.Species {
		byID[NameToID(sp.Name)] = sp
	}
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(tx.Species))
	out := make([]SpeciesSpec, 0, len(tx.Species))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("species %q is its own ancestor", byID[id].Name)
		}
		state[id] = visiting
		sp := byID[id]
		if sp.Ancestor != "" {
			if err := visit(NameToID(sp.Ancestor)); err != nil {
				return err
			}
		}
		state[id] = done
		out = append(out, sp)
		return nil
	}
	for _, sp := range tx.Species {
		if err := visit(NameToID(sp.Name)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
