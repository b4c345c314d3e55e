// Package eligibility decides whether a creature may learn or use a move.
package eligibility

import (
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// Rule is a move's eligibility predicate set. The zero value passes for
// every creature: a zero MaxLevel means no upper bound.
type Rule struct {
	MinLevel int
	MaxLevel int
	// RoleMatch, TypeMatch and DescriptionMatch are case-insensitive regexes;
	// empty means "not checked".
	RoleMatch        string
	TypeMatch        string
	DescriptionMatch string
	AlwaysFails      bool
	// Or lists alternative rules. Despite the name every alternative must
	// ALSO pass: the primary rule and each entry are combined with AND.
	Or []*Rule
}

// IsEmpty reports whether r carries no predicate at all.
func (r *Rule) IsEmpty() bool {
	return r == nil || (r.MinLevel <= 1 && r.MaxLevel == 0 &&
		r.RoleMatch == "" && r.TypeMatch == "" && r.DescriptionMatch == "" &&
		!r.AlwaysFails && len(r.Or) == 0)
}

// Subject is the read-only view of a creature the evaluator inspects.
type Subject interface {
	Level() int
	RoleNames() []string
	TypeNames() []string
	Description() string
}

// Evaluator checks rules against subjects. Compiled patterns are cached;
// an Evaluator is safe for concurrent use.
type Evaluator struct {
	logger *zap.Logger
	cache  sync.Map // pattern → *regexp.Regexp, or nil for a malformed pattern
}

// NewEvaluator creates an Evaluator.
//
// Precondition: logger must be non-nil.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		panic("eligibility.NewEvaluator: logger must not be nil")
	}
	return &Evaluator{logger: logger}
}

// Check reports whether s satisfies r.
//
// A nil rule passes. AlwaysFails fails immediately. The level must lie in
// [MinLevel, MaxLevel]. Each pattern present must match at least one of the
// corresponding values; a malformed pattern is a non-match and is logged,
// never returned. Finally every rule in r.Or must pass as well.
func (e *Evaluator) Check(s Subject, r *Rule) bool {
	if r == nil {
		return true
	}
	if r.AlwaysFails {
		return false
	}
	level := s.Level()
	if level < r.MinLevel || (r.MaxLevel > 0 && level > r.MaxLevel) {
		return false
	}
	if r.RoleMatch != "" && !e.anyMatch(r.RoleMatch, s.RoleNames()) {
		return false
	}
	if r.TypeMatch != "" && !e.anyMatch(r.TypeMatch, s.TypeNames()) {
		return false
	}
	if r.DescriptionMatch != "" && !e.anyMatch(r.DescriptionMatch, []string{s.Description()}) {
		return false
	}
	for _, alt := range r.Or {
		if !e.Check(s, alt) {
			return false
		}
	}
	return true
}

func (e *Evaluator) anyMatch(pattern string, values []string) bool {
	re := e.compile(pattern)
	if re == nil {
		return false
	}
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func (e *Evaluator) compile(pattern string) *regexp.Regexp {
	if v, ok := e.cache.Load(pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		e.logger.Warn("eligibility: malformed pattern treated as non-match",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		e.cache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	e.cache.Store(pattern, re)
	return re
}
