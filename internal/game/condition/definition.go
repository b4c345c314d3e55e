// Package condition defines the battle statuses a gotchi can carry.
package condition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in status ids.
const (
	Poison    = "poison"
	VineWrap  = "vine_wrap"
	Root      = "root"
	Thorn     = "thorn"
	Withdrawn = "withdrawn"
	Blinding  = "blinding"
)

// Definition is the static description of a status, loaded from YAML.
// Fractions are of max HP.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Drain is lost by the holder at end of turn.
	Drain float64 `yaml:"drain"`
	// Heal is restored to the holder at end of turn.
	Heal float64 `yaml:"heal"`
	// Reflect is dealt to the opponent, as a fraction of the opponent's max
	// HP, at end of a turn in which the holder was damaged.
	Reflect float64 `yaml:"reflect"`
	// Guard floors the holder's HP at 1 when a hit would faint it.
	Guard bool `yaml:"guard"`
	// BlocksHit makes the next hit against the holder miss; the status is
	// consumed when it blocks.
	BlocksHit bool `yaml:"blocks_hit"`
	// ClearsAtEndOfTurn removes the status after the end-of-turn phase.
	ClearsAtEndOfTurn bool `yaml:"clears_at_end_of_turn"`
	// Narration is printed for the end-of-turn effect; %s is the holder's name.
	Narration string `yaml:"narration"`
}

// Registry holds status definitions keyed by id.
//
// A Registry is read-only once loading completes.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// DefaultRegistry returns a Registry holding the built-in statuses.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, d := range []*Definition{
		{ID: Poison, Name: "Poison", Drain: 1.0 / 16, Narration: "%s is hurt by poison!"},
		{ID: VineWrap, Name: "Vine Wrap", Drain: 1.0 / 16, Narration: "%s is squeezed by vines!"},
		{ID: Root, Name: "Root", Heal: 1.0 / 16, Narration: "%s draws nutrients through its roots."},
		{ID: Thorn, Name: "Thorn", Reflect: 1.0 / 8, Narration: "%s's attacker is pricked by thorns!"},
		{ID: Withdrawn, Name: "Withdrawn", Guard: true, ClearsAtEndOfTurn: true, Narration: "%s comes out of hiding."},
		{ID: Blinding, Name: "Blinding", BlocksHit: true},
	} {
		reg.Register(d)
	}
	return reg
}

// Register adds def, replacing any definition with the same id.
//
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Definition) {
	r.defs[strings.ToLower(def.ID)] = def
}

// Get returns the definition for id. The empty id is never found.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[strings.ToLower(id)]
	return d, ok
}

// All returns the definitions sorted by id.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir over the built-in statuses.
// Unknown fields are rejected.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a Registry containing the defaults plus every file,
// or an error naming the first file that fails.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := DefaultRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("parsing %q: id is required", path)
		}
		reg.Register(&def)
	}
	return reg, nil
}
