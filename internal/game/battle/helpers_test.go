package battle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/game/condition"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/dice"
	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/game/stats"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// funcSource lets a test decide every roll.
type funcSource func(n int) int

func (f funcSource) Intn(n int) int { return f(n) }

// highRolls makes every Chance below 1 fail, no random crits, and every
// coin flip land on false.
func highRolls(n int) int { return n - 1 }

// lowRolls makes every Chance above 0 succeed and every random crit land.
func lowRolls(int) int { return 0 }

type staticScripts []scripting.Registration

func (s staticScripts) LoadDirectory(string) ([]scripting.Registration, error) { return s, nil }

// fakeEffects runs Go functions in place of Lua modules.
type fakeEffects map[string]func(*scripting.EffectArgs) error

func (f fakeEffects) HasEffect(name string) bool { _, ok := f[name]; return ok }

func (f fakeEffects) CallEffect(name string, args *scripting.EffectArgs) error { return f[name](args) }

type recorder struct{ outcomes []*battle.Outcome }

func (r *recorder) Record(_ context.Context, o *battle.Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

const (
	wolfSpecies   = int64(1)
	fernSpecies   = int64(2)
	rabbitSpecies = int64(3)
	driftSpecies  = int64(4)

	alice = "alice"
	bob   = "bob"
)

type harness struct {
	repo    *creature.MemoryRepository
	engine  *battle.Engine
	effects fakeEffects
	history *recorder
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, src dice.Source, regs ...scripting.Registration) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	repo := creature.NewMemoryRepository()
	meadow := []creature.Zone{{ID: 1, Name: "Meadow"}}
	repo.AddSpecies(&creature.Species{ID: wolfSpecies, Name: "Wolf", Description: "a pack hunter with sharp fangs"},
		[]creature.Role{{ID: 1, Name: "Predator"}}, meadow)
	repo.AddSpecies(&creature.Species{ID: fernSpecies, Name: "Fern", Description: "a soft green frond"},
		[]creature.Role{{ID: 2, Name: "Producer"}}, meadow)
	repo.AddSpecies(&creature.Species{ID: rabbitSpecies, Name: "Rabbit", Description: "a small fast grazer"},
		[]creature.Role{{ID: 3, Name: "Consumer"}}, meadow)
	repo.AddSpecies(&creature.Species{ID: driftSpecies, Name: "Drifter", Description: "a wanderer with no home"},
		[]creature.Role{{ID: 3, Name: "Consumer"}}, nil)
	repo.AddPredation(wolfSpecies, rabbitSpecies)

	repo.AddCreature(&creature.Creature{ID: 10, OwnerID: alice, SpeciesID: wolfSpecies, Name: "Fang", Experience: creature.ExperienceForLevel(5)})
	repo.AddCreature(&creature.Creature{ID: 20, OwnerID: bob, SpeciesID: fernSpecies, Name: "Fronds", Experience: creature.ExperienceForLevel(5)})
	repo.AddCreature(&creature.Creature{ID: 30, OwnerID: "carol", SpeciesID: rabbitSpecies, Name: "Hops", Experience: creature.ExperienceForLevel(5)})
	repo.AddCreature(&creature.Creature{ID: 40, OwnerID: "dave", SpeciesID: driftSpecies, Name: "Nomad", Experience: creature.ExperienceForLevel(5)})

	eval := eligibility.NewEvaluator(logger)
	catalog := move.NewCatalog(staticScripts(regs), eval, logger, 4)
	require.NoError(t, catalog.LoadAll("unused"))

	h := &harness{repo: repo, effects: fakeEffects{}, history: &recorder{}, logs: logs}
	clock := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	h.engine = battle.NewEngine(repo, catalog, stats.NewCalculator(clock), h.effects,
		condition.DefaultRegistry(), dice.NewRoller(src, logger), h.history, logger, battle.DefaultConfig())
	return h
}

func (h *harness) participant(t *testing.T, id int64) battle.Participant {
	t.Helper()
	c, ok := h.repo.Creature(id)
	require.True(t, ok)
	return battle.Participant{UserID: c.OwnerID, Creature: c}
}

// pvp creates and accepts a Fang (alice) vs Fronds (bob) battle.
func (h *harness) pvp(t *testing.T) *battle.Session {
	t.Helper()
	ctx := context.Background()
	opp := h.participant(t, 20)
	s, err := h.engine.CreateSession(ctx, h.participant(t, 10), &opp)
	require.NoError(t, err)
	require.NoError(t, h.engine.Accept(ctx, s, bob))
	return s
}

// setStats overwrites a player's battle stats.
func setStats(p *battle.Player, hp, atk, def, spd int) {
	p.Stats.HP, p.Stats.MaxHP = hp, hp
	p.Stats.Attack, p.Stats.Defense, p.Stats.Speed = atk, def, spd
}

// reg is a plain damaging move registration.
func reg(name string) scripting.Registration {
	return scripting.Registration{Name: name, Power: 1, HitRate: 1, CriticalRate: 1, Times: 1, PP: 10}
}
