package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strategy-tuner/internal/backtest"
	"strategy-tuner/internal/config"
	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/evaluate"
	"strategy-tuner/internal/guard"
	"strategy-tuner/internal/logging"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/paramspace"
	"strategy-tuner/internal/report"
	"strategy-tuner/internal/runid"
	"strategy-tuner/internal/storage"
	chstore "strategy-tuner/internal/storage/clickhouse"
	"strategy-tuner/internal/storage/memory"
	"strategy-tuner/internal/storage/migrations"
	pgstore "strategy-tuner/internal/storage/postgres"
	"strategy-tuner/internal/tuner"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	ownerID := flag.String("owner", "", "Owner ID to evaluate for (required)")
	seed := flag.Int64("seed", 0, "Generation seed (0 uses the configured default)")
	symbol := flag.String("symbol", "", "Market symbol (defaults to configured ingest symbol)")
	timeframe := flag.String("timeframe", "", "Candle timeframe (defaults to configured ingest timeframe)")
	startMs := flag.Int64("start-ms", 0, "Backtest window start (unix ms)")
	endMs := flag.Int64("end-ms", 0, "Backtest window end (unix ms)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	recordRun := flag.Bool("record-run", false, "Record a tuning run with the best score")
	format := flag.String("format", "markdown", "Report format: markdown, csv")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With().Str("component", "evaluate").Logger()

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
		candleStore   storage.CandleStore     = memory.NewCandleStore()
	)

	if !*useMemory {
		if cfg.Storage.PostgresDSN == "" {
			logger.Fatal().Msg("storage.postgres_dsn is required when not using --use-memory")
		}
		if cfg.Storage.ClickhouseDSN == "" {
			logger.Fatal().Msg("storage.clickhouse_dsn is required when not using --use-memory")
		}

		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("run postgres migrations")
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("run clickhouse migrations")
		}
		defer conn.Close()

		spaceStore = pgstore.NewParamSpaceStore(pool)
		settingsStore = pgstore.NewSettingsStore(pool)
		runStore = pgstore.NewTuningRunStore(pool)
		candleStore = chstore.NewCandleStore(conn)
	}

	guardCfg := guard.Config{
		Enabled:          cfg.Guard.Enabled,
		MinIntervalHours: cfg.Guard.MinIntervalHours,
		RequireTPAboveSL: cfg.Guard.RequireTPAboveSL,
		MaxDeltaPct:      cfg.Guard.MaxDeltaPct,
	}
	g := guard.New(guardCfg, cfg.Tuning.StrategyKind, runStore)

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

	genSeed := cfg.Tuning.DefaultSeed
	if *seed != 0 {
		genSeed = *seed
	}

	// Generate and filter the same way a tuning cycle does, then push the
	// survivors through backtests.
	loader := paramspace.NewLoader(spaceStore, cfg.Tuning.StrategyKind)
	space, err := loader.LoadEnabledSpace(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load parameter space")
	}
	if len(space) == 0 {
		logger.Fatal().Str("strategy_kind", cfg.Tuning.StrategyKind).Msg("parameter space is empty, nothing to evaluate")
	}

	strategy, risk, err := settingsStore.FindLatest(ctx, *ownerID, cfg.Tuning.StrategyKind)
	if err != nil {
		logger.Fatal().Err(err).Msg("load owner settings")
	}
	current := tuner.CurrentParams(strategy, risk)

	candidates := tuner.RandomGenerator{}.Generate(space, cfg.Tuning.CandidateCount, genSeed)
	kept := tuner.NewGuardFilter(g, logger).Filter(*ownerID, current, candidates)
	logger.Info().Int("generated", len(candidates)).Int("kept", len(kept)).Msg("candidates ready")

	port := backtest.NewStorePort(candleStore, settingsStore, cfg.Tuning.StrategyKind, cfg.Tuning.Exchange)
	evaluator := evaluate.New(port, cfg.Tuning.Workers, logger)
	evals := evaluator.EvaluateBatch(ctx, req, kept, cfg.Tuning.MaxCandidates)

	for _, ev := range evals {
		if ev.Err != "" {
			observability.RecordEvaluation("error")
		} else {
			observability.RecordEvaluation("ok")
		}
	}

	r := &report.Report{
		GeneratedAt:  time.Now(),
		OwnerID:      *ownerID,
		StrategyKind: cfg.Tuning.StrategyKind,
		Symbol:       req.Symbol,
		Timeframe:    req.Timeframe,
		Evaluations:  evals,
	}

	if *recordRun {
		now := time.Now().UnixMilli()
		run := &domain.TuningRun{
			RunID:        runid.ForTuningRun(*ownerID, cfg.Tuning.StrategyKind, now),
			OwnerID:      *ownerID,
			StrategyKind: cfg.Tuning.StrategyKind,
			CreatedAtMs:  now,
		}
		if best := r.Best(); best != nil {
			score := *best.Score
			run.BestScore = &score
			run.BestParams = make(map[string]float64)
			for name, v := range best.Candidate.Params {
				if v.Numeric {
					run.BestParams[name] = v.Num
				}
			}
		}
		if err := runStore.Insert(ctx, run); err != nil {
			logger.Error().Err(err).Msg("record tuning run")
		}
	}

	switch *format {
	case "csv":
		fmt.Print(report.RenderCSV(r))
	default:
		fmt.Print(report.RenderMarkdown(r))
	}
}
