package backtest

import (
	"context"
	"testing"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage/memory"
)

func seedPort(t *testing.T) *StorePort {
	t.Helper()
	ctx := context.Background()

	settings := memory.NewSettingsStore()
	if _, err := settings.GetStrategySettings(ctx, "owner-1", domain.StrategyKindPriceChange, "binance", "mainnet"); err != nil {
		t.Fatalf("seed strategy settings: %v", err)
	}
	if _, err := settings.GetRiskSettings(ctx, "owner-1", domain.StrategyKindPriceChange, "binance", "mainnet"); err != nil {
		t.Fatalf("seed risk settings: %v", err)
	}

	candles := memory.NewCandleStore()
	closes := []float64{100, 100, 100, 103, 99, 98}
	bars := make([]*domain.Candle, len(closes))
	for i, c := range closes {
		bar := domain.NewCandle(c, c, c, c, int64(i+1)*60_000)
		bars[i] = &bar
	}
	if err := candles.InsertBulk(ctx, "binance", "BTCUSDT", "1m", bars); err != nil {
		t.Fatalf("seed candles: %v", err)
	}

	return NewStorePort(candles, settings, domain.StrategyKindPriceChange, "binance")
}

func TestStorePort_Backtest(t *testing.T) {
	port := seedPort(t)
	req := domain.TuningRequest{OwnerID: "owner-1", Symbol: "BTCUSDT", Timeframe: "1m"}

	// Candidate overrides the stored window size and threshold.
	candidate := domain.NewCandidate(map[string]any{
		domain.ParamWindowSize:           3,
		domain.ParamPriceChangeThreshold: 1.0,
	})

	m, err := port.Backtest(context.Background(), req, candidate)
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	if !m.OK {
		t.Fatalf("Backtest() failed: %s", m.Reason)
	}
	if m.Trades != 1 || m.Losses != 1 {
		t.Errorf("Trades/Losses = %d/%d, want 1/1", m.Trades, m.Losses)
	}
}

func TestStorePort_FallsBackToStoredSettings(t *testing.T) {
	port := seedPort(t)
	req := domain.TuningRequest{OwnerID: "owner-1", Symbol: "BTCUSDT", Timeframe: "1m"}

	// No overrides: the stored defaults (window 5, threshold 1.0) apply, and
	// the 6-bar series never fills a 5-bar window after the first entry check.
	m, err := port.Backtest(context.Background(), req, domain.Candidate{})
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	if !m.OK {
		t.Fatalf("Backtest() failed: %s", m.Reason)
	}
}

func TestStorePort_UnknownOwner(t *testing.T) {
	port := seedPort(t)
	req := domain.TuningRequest{OwnerID: "ghost", Symbol: "BTCUSDT", Timeframe: "1m"}

	if _, err := port.Backtest(context.Background(), req, domain.Candidate{}); err == nil {
		t.Error("Backtest() error = nil, want settings lookup failure")
	}
}

func TestStorePort_MissingCandles(t *testing.T) {
	port := seedPort(t)
	req := domain.TuningRequest{OwnerID: "owner-1", Symbol: "ETHUSDT", Timeframe: "1m"}

	m, err := port.Backtest(context.Background(), req, domain.Candidate{})
	if err != nil {
		t.Fatalf("Backtest() error = %v", err)
	}
	if m.OK {
		t.Error("OK = true with no candles, want failed simulation")
	}
}
