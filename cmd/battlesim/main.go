// Package main provides the headless battle simulator: it loads the content
// library, plays one scenario with every unit under AI control, and records
// the result in the configured archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/content"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/host"
	"github.com/cory-johannsen/gridtactics/internal/observability"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
	"github.com/cory-johannsen/gridtactics/internal/storage"
	"github.com/cory-johannsen/gridtactics/internal/storage/postgres"
	"github.com/cory-johannsen/gridtactics/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenario := flag.String("scenario", "", "scenario to play; overrides content.scenario")
	realtime := flag.Bool("realtime", true, "tick at the configured rate instead of as fast as possible")
	history := flag.Int("history", 0, "print the N most recent archived battles and exit")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *scenario != "" {
		cfg.Content.Scenario = *scenario
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("opening archive", zap.String("backend", cfg.Archive.Backend), zap.Error(err))
	}
	defer archive.Close()

	if *history > 0 {
		if err := printHistory(ctx, archive, *history); err != nil {
			logger.Fatal("listing battles", zap.Error(err))
		}
		return
	}

	loadStart := time.Now()
	lib, err := content.Load(cfg.Content.Root)
	if err != nil {
		logger.Fatal("loading content", zap.String("root", cfg.Content.Root), zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("maps", len(lib.Maps)),
		zap.Int("scenarios", len(lib.Scenarios)),
		zap.Int("ai_domains", len(lib.Domains)),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	scripts := scripting.NewManager(logger)
	defer scripts.Close()
	if err := lib.LoadScripts(scripts, cfg.Content.InstructionLimit); err != nil {
		logger.Fatal("loading ai scripts", zap.Error(err))
	}

	b, err := battle.New(battle.Deps{
		Library:  lib,
		Scenario: cfg.Content.Scenario,
		Config:   cfg.Battle,
		Logger:   logger,
		Scripts:  scripts,
		AutoPlay: true,
	})
	if err != nil {
		logger.Fatal("creating battle", zap.Error(err))
	}
	if err := b.Init(); err != nil {
		logger.Fatal("starting battle", zap.Error(err))
	}

	loop := host.NewLoop(b, cfg.Battle.TickInterval(), *realtime, logger)
	lc := host.NewLifecycle(logger)
	lc.Add("battle", loop)
	if err := lc.Run(ctx); err != nil {
		logger.Fatal("running battle", zap.Error(err))
	}

	if b.Phase() != battle.PhaseOver {
		logger.Warn("battle interrupted, not archiving", zap.Stringer("phase", b.Phase()), zap.Int("turns", b.Turns()))
		return
	}
	summary := b.Summary()
	if err := archive.Record(ctx, summary); err != nil {
		logger.Fatal("archiving battle", zap.String("battle", summary.ID), zap.Error(err))
	}
	b.Teardown()

	winner := summary.Winner
	if winner == "" {
		winner = "draw"
	}
	fmt.Fprintf(os.Stdout, "%s: %s after %d turns (%d ticks) [%s]\n",
		summary.Scenario, winner, summary.Turns, summary.Ticks, time.Since(start).Round(time.Millisecond))
}

func openArchive(ctx context.Context, cfg config.Config) (storage.Recorder, error) {
	switch cfg.Archive.Backend {
	case "sqlite":
		store, err := sqlite.Open(cfg.Archive.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		a, err := postgres.OpenArchive(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return storage.Discard{}, nil
	}
}

func printHistory(ctx context.Context, archive storage.Recorder, n int) error {
	recs, err := archive.Recent(ctx, n)
	if err != nil {
		return err
	}
	for _, r := range recs {
		winner := r.Winner
		if winner == "" {
			winner = "draw"
		}
		fmt.Fprintf(os.Stdout, "%s  %-10s %-8s %4d turns  %s\n",
			r.FinishedAt.Local().Format(time.DateTime), r.Scenario, winner, r.Turns, r.ID)
	}
	return nil
}
