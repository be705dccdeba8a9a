package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"strategy-tuner/internal/backtest"
	"strategy-tuner/internal/config"
	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/logging"
	"strategy-tuner/internal/scoring"
	chstore "strategy-tuner/internal/storage/clickhouse"
	"strategy-tuner/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	ownerID := flag.String("owner", "manual", "Owner ID recorded in the result")
	symbol := flag.String("symbol", "", "Market symbol (defaults to configured ingest symbol)")
	timeframe := flag.String("timeframe", "", "Candle timeframe (defaults to configured ingest timeframe)")
	startMs := flag.Int64("start-ms", 0, "Candle range start (unix ms)")
	endMs := flag.Int64("end-ms", 0, "Candle range end (unix ms)")
	csvPath := flag.String("csv", "", "Load candles from CSV (ts_ms,open,high,low,close) instead of ClickHouse")

	windowSize := flag.Int("window-size", 5, "Sliding window size in bars")
	threshold := flag.Float64("threshold", 1.0, "Price change threshold (%)")
	capital := flag.Float64("capital", 1000, "Starting capital (USD)")
	takeProfit := flag.Float64("take-profit", 2.0, "Take profit (%)")
	stopLoss := flag.Float64("stop-loss", 1.0, "Stop loss (%)")
	commission := flag.Float64("commission", 0.1, "Commission per fill (%)")
	cooldown := flag.Int("cooldown-sec", 60, "Cooldown between trades (seconds)")
	riskPerTrade := flag.Float64("risk-per-trade", 2.0, "Risk per trade (% of equity)")
	maxExposureUSD := flag.Float64("max-exposure-usd", 5000, "Max position notional (USD)")
	maxExposurePct := flag.Float64("max-exposure-pct", 50, "Max position notional (% of equity)")

	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With().Str("component", "backtest").Logger()

	if *symbol == "" {
		*symbol = cfg.Ingest.Symbol
	}
	if *timeframe == "" {
		*timeframe = cfg.Ingest.Timeframe
	}

	ctx := context.Background()

	var candles []domain.Candle
	switch {
	case *csvPath != "":
		candles, err = loadCSV(*csvPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load candles from csv")
		}
	default:
		if cfg.Storage.ClickhouseDSN == "" {
			logger.Fatal().Msg("storage.clickhouse_dsn or --csv is required")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()

		rows, err := chstore.NewCandleStore(conn).GetRange(ctx, cfg.Tuning.Exchange, *symbol, *timeframe, *startMs, *endMs, 0)
		if err != nil {
			logger.Fatal().Err(err).Msg("load candles")
		}
		candles = make([]domain.Candle, len(rows))
		for i, row := range rows {
			candles[i] = *row
		}
	}

	logger.Info().Int("candles", len(candles)).Str("symbol", *symbol).Str("timeframe", *timeframe).Msg("running backtest")

	metrics := backtest.Simulate(backtest.Input{
		OwnerID: *ownerID,
		Settings: &domain.TradeSettings{
			CapitalUSD:      *capital,
			TakeProfitPct:   *takeProfit,
			StopLossPct:     *stopLoss,
			CommissionPct:   *commission,
			CooldownSec:     *cooldown,
			RiskPerTradePct: *riskPerTrade,
			MaxExposureUSD:  *maxExposureUSD,
			MaxExposurePct:  *maxExposurePct,
		},
		Symbol:                  *symbol,
		Timeframe:               *timeframe,
		WindowSize:              *windowSize,
		PriceChangeThresholdPct: *threshold,
		Candles:                 candles,
		StartAtMs:               *startMs,
		EndAtMs:                 *endMs,
	})

	if *outputJSON {
		output, _ := json.MarshalIndent(metrics, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	if !metrics.OK {
		fmt.Printf("Failed:          %s\n", metrics.Reason)
		return
	}
	fmt.Printf("Profit:          %.4f%%\n", metrics.ProfitPct)
	fmt.Printf("Max Drawdown:    %.4f%%\n", metrics.MaxDrawdownPct)
	fmt.Printf("Trades:          %d (%d wins / %d losses)\n", metrics.Trades, metrics.Wins, metrics.Losses)
	fmt.Printf("Win Rate:        %.4f%%\n", metrics.WinRatePct)
	fmt.Printf("Score:           %.4f\n", scoring.Score(metrics))
}

// loadCSV reads candles from a ts_ms,open,high,low,close file. A header row
// is skipped when the first field does not parse as an integer.
func loadCSV(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	var candles []domain.Candle
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line++
		if len(record) < 5 {
			return nil, fmt.Errorf("%s line %d: expected 5 fields, got %d", path, line, len(record))
		}

		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%s line %d: bad timestamp %q", path, line, record[0])
		}

		var prices [4]decimal.Decimal
		for i := 0; i < 4; i++ {
			p, err := decimal.NewFromString(record[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad price %q", path, line, record[i+1])
			}
			prices[i] = p
		}

		candles = append(candles, domain.Candle{
			TimestampMs: ts,
			Open:        prices[0],
			High:        prices[1],
			Low:         prices[2],
			Close:       prices[3],
		})
	}
	return candles, nil
}
