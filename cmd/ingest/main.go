package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"strategy-tuner/internal/config"
	"strategy-tuner/internal/ingest"
	"strategy-tuner/internal/logging"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/storage"
	chstore "strategy-tuner/internal/storage/clickhouse"
	"strategy-tuner/internal/storage/memory"
	"strategy-tuner/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	url := flag.String("url", "", "Websocket stream URL (defaults to configured ingest url)")
	symbol := flag.String("symbol", "", "Market symbol (defaults to configured ingest symbol)")
	timeframe := flag.String("timeframe", "", "Candle timeframe (defaults to configured ingest timeframe)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With().Str("component", "ingest").Logger()

	if *url == "" {
		*url = cfg.Ingest.URL
	}
	if *symbol == "" {
		*symbol = cfg.Ingest.Symbol
	}
	if *timeframe == "" {
		*timeframe = cfg.Ingest.Timeframe
	}
	if *url == "" {
		logger.Fatal().Msg("--url or ingest.url is required")
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

	var candleStore storage.CandleStore = memory.NewCandleStore()
	if !*useMemory {
		if cfg.Storage.ClickhouseDSN == "" {
			logger.Fatal().Msg("storage.clickhouse_dsn is required when not using --use-memory")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("run clickhouse migrations")
		}
		defer conn.Close()
		candleStore = chstore.NewCandleStore(conn)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	feedCfg := ingest.DefaultFeedConfig()
	feedCfg.URL = *url
	feedCfg.Exchange = cfg.Tuning.Exchange
	feedCfg.Symbol = *symbol
	feedCfg.Timeframe = *timeframe

	feed := ingest.NewFeed(feedCfg, candleStore, logger)
	if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("feed stopped")
	}
	logger.Info().Msg("ingest stopped")
}
