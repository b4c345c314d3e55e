package gameserver

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
	"github.com/cory-johannsen/gotchi/internal/game/session"
	"github.com/cory-johannsen/gotchi/internal/game/stats"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// lastRoll makes every source roll return n-1: no random crits, every coin
// flip false, CPU choices land on the last candidate.
type lastRoll struct{}

func (lastRoll) Intn(n int) int { return n - 1 }

type staticScripts []scripting.Registration

func (s staticScripts) LoadDirectory(string) ([]scripting.Registration, error) { return s, nil }

// knockout is a move whose effect drops the target to zero HP.
type knockout struct{}

func (knockout) HasEffect(name string) bool { return name == "Smite" }

func (knockout) CallEffect(_ string, args *scripting.EffectArgs) error {
	args.Target.HP = 0
	return nil
}

// recorder collects outcomes and forwards them to store when one is set.
type recorder struct {
	outcomes chan *battle.Outcome
	store    battle.HistoryRecorder
}

func (r *recorder) Record(ctx context.Context, o *battle.Outcome) error {
	r.outcomes <- o
	if r.store != nil {
		return r.store.Record(ctx, o)
	}
	return nil
}

const (
	alice = "alice"
	bob   = "bob"
	carol = "carol"
)

type fixture struct {
	repo    *creature.MemoryRepository
	engine  *battle.Engine
	store   *session.MemoryStore[*battle.Session]
	handler *BattleHandler
	history *recorder
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	repo := creature.NewMemoryRepository()
	meadow := []creature.Zone{{ID: 1, Name: "Meadow"}}
	repo.AddSpecies(&creature.Species{ID: 1, Name: "Wolf", Description: "a pack hunter"},
		[]creature.Role{{ID: 1, Name: "Predator"}}, meadow)
	repo.AddSpecies(&creature.Species{ID: 2, Name: "Fern", Description: "a green frond"},
		[]creature.Role{{ID: 2, Name: "Producer"}}, meadow)
	repo.AddSpecies(&creature.Species{ID: 3, Name: "Rabbit", Description: "a grazer"},
		[]creature.Role{{ID: 3, Name: "Consumer"}}, meadow)
	repo.AddCreature(&creature.Creature{ID: 10, OwnerID: alice, SpeciesID: 1, Name: "Fang", Experience: creature.ExperienceForLevel(5)})
	repo.AddCreature(&creature.Creature{ID: 20, OwnerID: bob, SpeciesID: 2, Name: "Fronds", Experience: creature.ExperienceForLevel(5)})
	repo.AddCreature(&creature.Creature{ID: 30, OwnerID: carol, SpeciesID: 3, Name: "Hops", Experience: creature.ExperienceForLevel(5)})

	smite := scripting.Registration{Name: "Smite", Power: 1, HitRate: 1, CriticalRate: 1, Times: 1, PP: 5}
	catalog := move.NewCatalog(staticScripts{smite}, eligibility.NewEvaluator(logger), logger, move.DefaultMovesetSize)
	require.NoError(t, catalog.LoadAll("unused"))

	f := &fixture{
		repo:    repo,
		store:   session.NewMemoryStore[*battle.Session](),
		history: &recorder{outcomes: make(chan *battle.Outcome, 8)},
		logs:    logs,
	}
	f.engine = battle.NewEngine(repo, catalog, stats.NewCalculator(nil), knockout{},
		condition.DefaultRegistry(), dice.NewRoller(lastRoll{}, logger), f.history, logger, battle.DefaultConfig())
	f.handler = NewBattleHandler(f.engine, repo, f.store, timeout, logger)
	t.Cleanup(f.handler.Close)
	return f
}
