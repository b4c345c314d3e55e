// Package main provides a CLI tool that seeds the creature taxonomy and
// starter gotchis from a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/gotchi/internal/config"
	"github.com/cory-johannsen/gotchi/internal/importer"
	"github.com/cory-johannsen/gotchi/internal/observability"
	"github.com/cory-johannsen/gotchi/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "", "path to taxonomy YAML file (required)")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	if *source == "" {
		fmt.Fprintln(os.Stderr, "usage: import-content -source <taxonomy.yaml> [-config <path>] [-dry-run]")
		os.Exit(1)
	}

	tx, err := importer.LoadFile(*source)
	if err != nil {
		log.Fatalf("loading taxonomy: %v", err)
	}
	if *dryRun {
		fmt.Printf("%s is valid: %d species, %d predation edges, %d gotchis\n",
			*source, len(tx.Species), len(tx.Predation), len(tx.Gotchis))
		return
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	imp := importer.New(postgres.NewCreatureRepository(pool.DB()), logger)
	sum, err := imp.Run(ctx, tx)
	if err != nil {
		log.Fatalf("importing taxonomy: %v", err)
	}
	fmt.Printf("imported %d species, %d predation edges, %d gotchis in %s\n",
		sum.Species, sum.Predation, sum.Gotchis, time.Since(start).Round(time.Millisecond))
}
