// Package main provides the gotchi battle server binary, serving the battle
// service over gRPC.
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
	"github.com/cory-johannsen/gotchi/internal/observability"
	"github.com/cory-johannsen/gotchi/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	tracingCfg, err := observability.LoadTracingConfig()
	if err != nil {
		logger.Fatal("loading tracing config", zap.Error(err))
	}
	shutdownTracing, err := observability.SetupTracing(ctx, tracingCfg, cfg.Server.Name, logger)
	if err != nil {
		logger.Fatal("setting up tracing", zap.Error(err))
	}

	logger.Info("starting battle server",
		zap.String("name", cfg.Server.Name),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
	)

	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing battle server", zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GRPC.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return app.GRPC.Serve(lis)
		},
		StopFn: func() {
			app.GRPC.GracefulStop()
		},
	})

	lifecycle.Add("postgres-health", &server.Ticker{
		Interval: 30 * time.Second,
		Fn: func() {
			if err := app.Pool.Health(ctx, 5*time.Second); err != nil {
				logger.Warn("database health check failed", zap.Error(err))
				return
			}
			st := app.Pool.Stats()
			logger.Debug("database pool",
				zap.Int32("total", st.Total),
				zap.Int32("idle", st.Idle),
				zap.Int32("acquired", st.Acquired),
			)
		},
	})

	lifecycle.AddCloser("tracing", shutdownTracing)
	lifecycle.AddCloser("app", func(context.Context) error {
		cleanup()
		return nil
	})

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
