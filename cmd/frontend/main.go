// Package main provides the terminal client for the battle server. It reads
// commands from stdin and talks to the game server over gRPC.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/gotchi/internal/config"
	"github.com/cory-johannsen/gotchi/internal/frontend"
	"github.com/cory-johannsen/gotchi/internal/gameserver"
	"github.com/cory-johannsen/gotchi/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	addr := flag.String("addr", "", "game server address (defaults to grpc.host:grpc.port from config)")
	user := flag.String("user", "", "user ID to play as (required)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-command timeout")
	flag.Parse()

	if *user == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	target := *addr
	if target == "" {
		target = cfg.GRPC.Addr()
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		logger.Fatal("dialing game server", zap.String("addr", target), zap.Error(err))
	}
	defer conn.Close()

	shell := frontend.NewShell(gameserver.NewClient(conn), *user)

	fmt.Printf("connected to %s as %s; type help for commands\n", target, *user)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		out, err := shell.Dispatch(ctx, in.Text())
		cancel()
		if errors.Is(err, frontend.ErrQuit) {
			return
		}
		if err != nil {
			logger.Error("command failed", zap.Error(err))
			continue
		}
		fmt.Print(out)
	}
	if err := in.Err(); err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}
}
