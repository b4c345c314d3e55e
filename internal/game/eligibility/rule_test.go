package eligibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
)

type subject struct {
	level int
	roles []string
	types []string
	desc  string
}

func (s subject) Level() int          { return s.level }
func (s subject) RoleNames() []string { return s.roles }
func (s subject) TypeNames() []string { return s.types }
func (s subject) Description() string { return s.desc }

func newEvaluator() *eligibility.Evaluator {
	return eligibility.NewEvaluator(zap.NewNop())
}

func TestCheck_NilRulePasses(t *testing.T) {
	assert.True(t, newEvaluator().Check(subject{level: 1}, nil))
}

func TestCheck_AlwaysFails(t *testing.T) {
	assert.False(t, newEvaluator().Check(subject{level: 50}, &eligibility.Rule{AlwaysFails: true}))
}

func TestCheck_LevelBounds(t *testing.T) {
	e := newEvaluator()
	r := &eligibility.Rule{MinLevel: 5, MaxLevel: 10}
	assert.False(t, e.Check(subject{level: 4}, r))
	assert.True(t, e.Check(subject{level: 5}, r))
	assert.True(t, e.Check(subject{level: 10}, r))
	assert.False(t, e.Check(subject{level: 11}, r))
	assert.True(t, e.Check(subject{level: 99}, &eligibility.Rule{MinLevel: 5}))
}

func TestCheck_RolePatternCaseInsensitive(t *testing.T) {
	e := newEvaluator()
	r := &eligibility.Rule{RoleMatch: "^predator$"}
	assert.True(t, e.Check(subject{level: 1, roles: []string{"Producer", "PREDATOR"}}, r))
	assert.False(t, e.Check(subject{level: 1, roles: []string{"Producer"}}, r))
	assert.False(t, e.Check(subject{level: 1}, r))
}

func TestCheck_TypeAndDescriptionPatterns(t *testing.T) {
	e := newEvaluator()
	s := subject{level: 3, types: []string{"producer"}, desc: "A Thorny shrub with bright flowers."}
	assert.True(t, e.Check(s, &eligibility.Rule{TypeMatch: "producer|decomposer"}))
	assert.False(t, e.Check(s, &eligibility.Rule{TypeMatch: "parasite"}))
	assert.True(t, e.Check(s, &eligibility.Rule{DescriptionMatch: `\bthorn`}))
	assert.False(t, e.Check(s, &eligibility.Rule{DescriptionMatch: `\bclaws?\b`}))
}

func TestCheck_MalformedPatternIsNonMatchAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := eligibility.NewEvaluator(zap.New(core))
	s := subject{level: 1, roles: []string{"Predator"}, desc: "anything"}
	assert.NotPanics(t, func() {
		assert.False(t, e.Check(s, &eligibility.Rule{RoleMatch: "(unclosed"}))
		assert.False(t, e.Check(s, &eligibility.Rule{DescriptionMatch: "[z-a]"}))
	})
	assert.Equal(t, 2, logs.Len())
	// Cached: the same malformed pattern is not logged twice.
	e.Check(s, &eligibility.Rule{RoleMatch: "(unclosed"})
	assert.Equal(t, 2, logs.Len())
}

func TestCheck_OrListIsConjunctive(t *testing.T) {
	e := newEvaluator()
	s := subject{level: 10, roles: []string{"Predator"}, types: []string{"predator"}}
	passing := &eligibility.Rule{RoleMatch: "predator"}
	failing := &eligibility.Rule{RoleMatch: "producer"}

	assert.True(t, e.Check(s, &eligibility.Rule{Or: []*eligibility.Rule{passing}}))
	// One failing alternative fails the whole rule even though another passes.
	assert.False(t, e.Check(s, &eligibility.Rule{Or: []*eligibility.Rule{passing, failing}}))
	// Nested alternatives use the same logic.
	nested := &eligibility.Rule{Or: []*eligibility.Rule{{Or: []*eligibility.Rule{failing}}}}
	assert.False(t, e.Check(s, nested))
	// A failing primary is not rescued by passing alternatives.
	assert.False(t, e.Check(s, &eligibility.Rule{MinLevel: 20, Or: []*eligibility.Rule{passing}}))
}

func TestProperty_EmptyRuleAlwaysPasses(t *testing.T) {
	e := newEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		s := subject{
			level: rapid.IntRange(1, 100).Draw(rt, "level"),
			roles: rapid.SliceOf(rapid.StringMatching(`[A-Za-z ]{0,12}`)).Draw(rt, "roles"),
			types: rapid.SliceOf(rapid.StringMatching(`[a-z-]{0,12}`)).Draw(rt, "types"),
			desc:  rapid.String().Draw(rt, "desc"),
		}
		r := &eligibility.Rule{}
		assert.True(rt, r.IsEmpty())
		assert.True(rt, e.Check(s, r))
	})
}

func TestProperty_MalformedPatternsNeverPanic(t *testing.T) {
	e := newEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		pattern := rapid.String().Draw(rt, "pattern")
		s := subject{level: 1, roles: []string{"x"}, types: []string{"y"}, desc: "z"}
		assert.NotPanics(rt, func() {
			e.Check(s, &eligibility.Rule{RoleMatch: pattern, TypeMatch: pattern, DescriptionMatch: pattern})
		})
	})
}
