package move

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/dice"
	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// DefaultMovesetSize is the moveset cap when none is configured.
const DefaultMovesetSize = 4

// ErrMoveNotFound is returned when a move name is not registered.
var ErrMoveNotFound = errors.New("move not found")

// registry is an immutable snapshot of the loaded moves.
type registry struct {
	order  []*Definition
	byName map[string]*Definition
}

func newRegistry(defs []*Definition) *registry {
	r := &registry{byName: make(map[string]*Definition, len(defs)+1)}
	r.byName[UniversalMove] = universal()
	for _, d := range defs {
		if _, dup := r.byName[d.Key()]; dup && d.Key() != UniversalMove {
			continue
		}
		r.byName[d.Key()] = d
		if d.Key() != UniversalMove {
			r.order = append(r.order, d)
		}
	}
	return r
}

// Scripts is the subset of scripting.Manager the catalog loads from.
type Scripts interface {
	LoadDirectory(dir string) ([]scripting.Registration, error)
}

// Catalog is the move registry. Reads are lock-free; LoadAll swaps the
// whole registry.
type Catalog struct {
	reg     atomic.Pointer[registry]
	scripts Scripts
	eval    *eligibility.Evaluator
	logger  *zap.Logger
	size    int
}

// NewCatalog creates a Catalog holding only the universal move.
//
// Precondition: scripts, eval and logger must be non-nil; size <= 0 uses
// DefaultMovesetSize.
func NewCatalog(scripts Scripts, eval *eligibility.Evaluator, logger *zap.Logger, size int) *Catalog {
	if size <= 0 {
		size = DefaultMovesetSize
	}
	c := &Catalog{scripts: scripts, eval: eval, logger: logger, size: size}
	c.reg.Store(newRegistry(nil))
	return c
}

// LoadAll loads every move module in dir and replaces the registry.
//
// Postcondition: on error the previous registry stays in place.
func (c *Catalog) LoadAll(dir string) error {
	regs, err := c.scripts.LoadDirectory(dir)
	if err != nil {
		return fmt.Errorf("loading moves: %w", err)
	}
	defs := make([]*Definition, 0, len(regs))
	for _, r := range regs {
		defs = append(defs, fromRegistration(r))
	}
	reg := newRegistry(defs)
	c.reg.Store(reg)
	c.logger.Info("move catalog loaded", zap.Int("moves", len(reg.order)+1))
	return nil
}

// Definitions returns the registered definitions in registration order,
// universal move first.
func (c *Catalog) Definitions() []*Definition {
	reg := c.reg.Load()
	out := make([]*Definition, 0, len(reg.order)+1)
	out = append(out, reg.byName[UniversalMove])
	return append(out, reg.order...)
}

// GetMove returns a fresh instance of the named move with full PP.
func (c *Catalog) GetMove(name string) (*Move, error) {
	d, ok := c.reg.Load().byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMoveNotFound, name)
	}
	return newMove(d), nil
}

// GetLearnSet returns the universal move followed by every registered move
// whose rule p satisfies, in registration order.
func (c *Catalog) GetLearnSet(p *creature.Profile) []*Move {
	reg := c.reg.Load()
	out := []*Move{newMove(reg.byName[UniversalMove])}
	for _, d := range reg.order {
		if c.eval.Check(p, d.Rule) {
			out = append(out, newMove(d))
		}
	}
	return out
}

// GetMoveset returns the last size entries of p's learn-set, shuffled with
// a seed derived from p's species and then sorted by name.
//
// Postcondition: 1 <= len(result) <= size; two calls for the same species
// and level return the same names in the same order.
func (c *Catalog) GetMoveset(p *creature.Profile) []*Move {
	learn := c.GetLearnSet(p)
	if len(learn) > c.size {
		learn = learn[len(learn)-c.size:]
	}
	src := dice.NewSeededSource(dice.SeedFrom("moveset", p.Species.ID))
	dice.Shuffle(src, len(learn), func(i, j int) { learn[i], learn[j] = learn[j], learn[i] })
	sort.SliceStable(learn, func(i, j int) bool {
		return strings.ToLower(learn[i].Name) < strings.ToLower(learn[j].Name)
	})
	return learn
}
