// Package move holds move definitions, per-creature move instances and the
// catalog that builds learn-sets and movesets.
package move

import (
	"strings"

	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// UniversalMove is the baseline move every creature can always use.
const UniversalMove = "hit"

// Definition is an immutable move as registered by its script module.
type Definition struct {
	Name         string
	Description  string
	Icon         string
	Role         string
	Power        float64
	Priority     int
	CriticalRate float64
	HitRate      float64
	Times        int
	// SelfTarget moves act on the user and skip the hit roll.
	SelfTarget bool
	// MaxPP of 0 means the move never runs out.
	MaxPP  int
	Rule   *eligibility.Rule
	Source string
}

// Key is the registry key of the definition.
func (d *Definition) Key() string { return strings.ToLower(d.Name) }

// Move is one creature's instance of a Definition with its own remaining PP.
type Move struct {
	*Definition
	PP int
}

// newMove instantiates d with full PP.
func newMove(d *Definition) *Move {
	return &Move{Definition: d, PP: d.MaxPP}
}

// Available reports whether the move can still be used.
func (m *Move) Available() bool { return m.MaxPP == 0 || m.PP > 0 }

// Spend consumes one use.
//
// Precondition: m.Available().
func (m *Move) Spend() {
	if m.MaxPP > 0 && m.PP > 0 {
		m.PP--
	}
}

func universal() *Definition {
	return &Definition{
		Name:         UniversalMove,
		Description:  "A plain physical strike.",
		Power:        1,
		CriticalRate: 1,
		HitRate:      1,
		Times:        1,
	}
}

func fromRegistration(r scripting.Registration) *Definition {
	return &Definition{
		Name:         r.Name,
		Description:  r.Description,
		Icon:         r.Icon,
		Role:         strings.ToLower(r.Role),
		Power:        r.Power,
		Priority:     r.Priority,
		CriticalRate: r.CriticalRate,
		HitRate:      r.HitRate,
		Times:        r.Times,
		SelfTarget:   r.Target == scripting.TargetUser,
		MaxPP:        r.PP,
		Rule:         toRule(r.Requires),
		Source:       r.Source,
	}
}

func toRule(req *scripting.Requirement) *eligibility.Rule {
	if req == nil {
		return nil
	}
	r := &eligibility.Rule{
		MinLevel:         req.MinLevel,
		MaxLevel:         req.MaxLevel,
		RoleMatch:        req.Role,
		TypeMatch:        req.Type,
		DescriptionMatch: req.Description,
		AlwaysFails:      req.AlwaysFails,
	}
	for _, alt := range req.Or {
		r.Or = append(r.Or, toRule(alt))
	}
	return r
}
