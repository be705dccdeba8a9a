package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strategy-tuner/internal/config"
	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/guard"
	"strategy-tuner/internal/logging"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/paramspace"
	"strategy-tuner/internal/runid"
	"strategy-tuner/internal/storage"
	"strategy-tuner/internal/storage/memory"
	"strategy-tuner/internal/storage/migrations"
	pgstore "strategy-tuner/internal/storage/postgres"
	"strategy-tuner/internal/tuner"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	ownerID := flag.String("owner", "", "Owner ID to tune for (required)")
	seed := flag.Int64("seed", 0, "Generation seed (0 uses the configured default)")
	symbol := flag.String("symbol", "", "Market symbol (defaults to configured ingest symbol)")
	timeframe := flag.String("timeframe", "", "Candle timeframe (defaults to configured ingest timeframe)")
	startMs := flag.Int64("start-ms", 0, "Backtest window start (unix ms)")
	endMs := flag.Int64("end-ms", 0, "Backtest window end (unix ms)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	record := flag.Bool("record", true, "Record the tuning run for the frequency guard")
	outputJSON := flag.Bool("json", false, "Output result as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With().Str("component", "tune").Logger()

	if *ownerID == "" {
		logger.Fatal().Msg("--owner is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var (
		spaceStore    storage.ParamSpaceStore = memory.NewParamSpaceStore()
		settingsStore storage.SettingsStore   = memory.NewSettingsStore()
		runStore      storage.TuningRunStore  = memory.NewTuningRunStore()
	)

	if !*useMemory {
		if cfg.Storage.PostgresDSN == "" {
			logger.Fatal().Msg("storage.postgres_dsn is required when not using --use-memory")
		}

		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("run postgres migrations")
		}

		spaceStore = pgstore.NewParamSpaceStore(pool)
		settingsStore = pgstore.NewSettingsStore(pool)
		runStore = pgstore.NewTuningRunStore(pool)
	}

	guardCfg := guard.Config{
		Enabled:          cfg.Guard.Enabled,
		MinIntervalHours: cfg.Guard.MinIntervalHours,
		RequireTPAboveSL: cfg.Guard.RequireTPAboveSL,
		MaxDeltaPct:      cfg.Guard.MaxDeltaPct,
	}
	g := guard.New(guardCfg, cfg.Tuning.StrategyKind, runStore)

	t := tuner.New(
		tuner.Config{
			StrategyKind:   cfg.Tuning.StrategyKind,
			Exchange:       cfg.Tuning.Exchange,
			Network:        cfg.Tuning.Network,
			CandidateCount: cfg.Tuning.CandidateCount,
			DefaultSeed:    cfg.Tuning.DefaultSeed,
		},
		g,
		paramspace.NewLoader(spaceStore, cfg.Tuning.StrategyKind),
		settingsStore,
		tuner.RandomGenerator{},
		tuner.NewGuardFilter(g, logger),
		logger,
	)

	req := domain.TuningRequest{
		OwnerID:   *ownerID,
		StartAtMs: *startMs,
		EndAtMs:   *endMs,
		Symbol:    *symbol,
		Timeframe: *timeframe,
	}
	if req.Symbol == "" {
		req.Symbol = cfg.Ingest.Symbol
	}
	if req.Timeframe == "" {
		req.Timeframe = cfg.Ingest.Timeframe
	}
	if *seed != 0 {
		req.Seed = seed
	}

	result := t.Tune(ctx, req)

	outcome := "completed"
	if result.Generated == 0 {
		outcome = "rejected"
	}
	observability.RecordTuningCycle(outcome)
	observability.RecordCandidates(result.Generated, result.Filtered)

	if *record && result.Generated > 0 {
		now := time.Now().UnixMilli()
		run := &domain.TuningRun{
			RunID:        runid.ForTuningRun(*ownerID, cfg.Tuning.StrategyKind, now),
			OwnerID:      *ownerID,
			StrategyKind: cfg.Tuning.StrategyKind,
			CreatedAtMs:  now,
		}
		if err := runStore.Insert(ctx, run); err != nil {
			logger.Error().Err(err).Msg("record tuning run")
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println()
	fmt.Println("=== Tuning Cycle Result ===")
	fmt.Printf("Applied:     %v\n", result.Applied)
	fmt.Printf("Reason:      %s\n", result.Reason)
	fmt.Printf("Generated:   %d\n", result.Generated)
	fmt.Printf("Filtered:    %d\n", result.Filtered)
	if len(result.OldParams) > 0 {
		fmt.Println("Current parameters:")
		for name, v := range result.OldParams {
			fmt.Printf("  %-24s %v\n", name, v.Raw)
		}
	}
}
