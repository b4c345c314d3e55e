package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/gotchi/internal/config"
	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/game/condition"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/dice"
	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/game/session"
	"github.com/cory-johannsen/gotchi/internal/game/stats"
	"github.com/cory-johannsen/gotchi/internal/gameserver"
	"github.com/cory-johannsen/gotchi/internal/observability"
	"github.com/cory-johannsen/gotchi/internal/scripting"
	"github.com/cory-johannsen/gotchi/internal/storage/postgres"
	"github.com/cory-johannsen/gotchi/internal/storage/sqlite"
)

// App is the assembled game server.
type App struct {
	Pool    *postgres.Pool
	Handler *gameserver.BattleHandler
	GRPC    *grpc.Server
}

func providePool(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Pool, func(), error) {
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pool, pool.Close, nil
}

func provideRepository(pool *postgres.Pool) creature.Repository {
	return postgres.NewCreatureRepository(pool.DB())
}

func provideRoller(logger *zap.Logger) *dice.Roller {
	return dice.NewRoller(dice.NewCryptoSource(), logger)
}

func provideScripts(cfg config.Config, roller *dice.Roller, logger *zap.Logger) (*scripting.Manager, func()) {
	mgr := scripting.NewManager(roller, observability.Component(logger, "scripting"), cfg.Battle.ScriptInstructionLimit)
	mgr.Damage = battle.Damage
	return mgr, mgr.Close
}

func provideCatalog(cfg config.Config, scripts move.Scripts, eval *eligibility.Evaluator, logger *zap.Logger) (*move.Catalog, error) {
	catalog := move.NewCatalog(scripts, eval, logger, cfg.Battle.MovesetSize)
	if err := catalog.LoadAll(cfg.Battle.ScriptsDir); err != nil {
		return nil, fmt.Errorf("loading moves: %w", err)
	}
	return catalog, nil
}

func provideStatuses(cfg config.Config) (*condition.Registry, error) {
	if cfg.Statuses.Dir == "" {
		return condition.DefaultRegistry(), nil
	}
	reg, err := condition.LoadDirectory(cfg.Statuses.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading statuses: %w", err)
	}
	return reg, nil
}

func provideCalculator() *stats.Calculator {
	return stats.NewCalculator(time.Now)
}

// historyStore is nil when battle history is disabled.
func provideHistoryStore(cfg config.Config) (*sqlite.HistoryStore, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	store, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening battle history: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func provideRecorder(store *sqlite.HistoryStore) battle.HistoryRecorder {
	if store == nil {
		return nil
	}
	return store
}

func provideHistoryReader(store *sqlite.HistoryStore) gameserver.HistoryReader {
	if store == nil {
		return nil
	}
	return store
}

func provideBattleConfig(cfg config.Config) battle.Config {
	return battle.Config{ExpMultiple: cfg.Battle.ExpMultiple, LevelSpread: cfg.Battle.LevelSpread}
}

func provideSessionStore() session.Store[*battle.Session] {
	return session.NewMemoryStore[*battle.Session]()
}

func provideHandler(
	cfg config.Config,
	engine gameserver.Battles,
	repo creature.Repository,
	store session.Store[*battle.Session],
	logger *zap.Logger,
) (*gameserver.BattleHandler, func()) {
	h := gameserver.NewBattleHandler(engine, repo, store, cfg.Battle.ChallengeTimeout, observability.Component(logger, "battle"))
	return h, h.Close
}

func provideGRPCServer(svc *gameserver.BattleService) *grpc.Server {
	srv, _ := gameserver.NewGRPCServer(svc)
	return srv
}

var appSet = wire.NewSet(
	providePool,
	provideRepository,
	provideRoller,
	provideScripts,
	wire.Bind(new(move.Scripts), new(*scripting.Manager)),
	wire.Bind(new(battle.Effects), new(*scripting.Manager)),
	eligibility.NewEvaluator,
	provideCatalog,
	wire.Bind(new(battle.Movesets), new(*move.Catalog)),
	provideStatuses,
	provideCalculator,
	provideHistoryStore,
	provideRecorder,
	provideHistoryReader,
	provideBattleConfig,
	battle.NewEngine,
	wire.Bind(new(gameserver.Battles), new(*battle.Engine)),
	provideSessionStore,
	provideHandler,
	gameserver.NewBattleService,
	provideGRPCServer,
	wire.Struct(new(App), "*"),
)
