// Package main provides the all-in-one development battle server. It seeds an
// in-memory taxonomy from YAML instead of connecting to PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"

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
	"github.com/cory-johannsen/gotchi/internal/importer"
	"github.com/cory-johannsen/gotchi/internal/observability"
	"github.com/cory-johannsen/gotchi/internal/scripting"
	"github.com/cory-johannsen/gotchi/internal/server"
	"github.com/cory-johannsen/gotchi/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	taxonomyPath := flag.String("taxonomy", "content/taxonomy.yaml", "path to taxonomy YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting gotchi dev server",
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.String("taxonomy", *taxonomyPath),
	)

	ctx := context.Background()

	tx, err := importer.LoadFile(*taxonomyPath)
	if err != nil {
		logger.Fatal("loading taxonomy", zap.Error(err))
	}
	repo := creature.NewMemoryRepository()
	if _, err := importer.New(importer.NewMemorySeeder(repo), logger).Run(ctx, tx); err != nil {
		logger.Fatal("seeding taxonomy", zap.Error(err))
	}

	roller := dice.NewRoller(dice.NewCryptoSource(), logger)
	scripts := scripting.NewManager(roller, logger, cfg.Battle.ScriptInstructionLimit)
	scripts.Damage = battle.Damage
	defer scripts.Close()

	catalog := move.NewCatalog(scripts, eligibility.NewEvaluator(logger), logger, cfg.Battle.MovesetSize)
	if err := catalog.LoadAll(cfg.Battle.ScriptsDir); err != nil {
		logger.Fatal("loading moves", zap.Error(err))
	}

	statuses := condition.DefaultRegistry()
	if cfg.Statuses.Dir != "" {
		if statuses, err = condition.LoadDirectory(cfg.Statuses.Dir); err != nil {
			logger.Fatal("loading statuses", zap.Error(err))
		}
	}

	historyPath := ":memory:"
	if cfg.History.Enabled {
		historyPath = cfg.History.Path
	}
	history, err := sqlite.Open(historyPath)
	if err != nil {
		logger.Fatal("opening battle history", zap.Error(err))
	}

	engine := battle.NewEngine(repo, catalog, stats.NewCalculator(nil), scripts, statuses, roller, history, logger,
		battle.Config{ExpMultiple: cfg.Battle.ExpMultiple, LevelSpread: cfg.Battle.LevelSpread})
	handler := gameserver.NewBattleHandler(engine, repo, session.NewMemoryStore[*battle.Session](),
		cfg.Battle.ChallengeTimeout, logger)
	grpcServer, _ := gameserver.NewGRPCServer(gameserver.NewBattleService(handler, repo, history, logger))

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GRPC.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: grpcServer.GracefulStop,
	})
	lifecycle.AddCloser("history", func(context.Context) error {
		return history.Close()
	})
	lifecycle.AddCloser("battles", func(context.Context) error {
		handler.Close()
		return nil
	})

	logger.Info("dev server initialized",
		zap.Int("species", len(tx.Species)),
		zap.Int("gotchis", len(tx.Gotchis)),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
