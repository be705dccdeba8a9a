package backtest

import (
	"context"
	"fmt"
	"time"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/evaluate"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/storage"
)

// StorePort runs backtests against stored settings and candles. It is the
// production implementation of the evaluator's backtest port.
type StorePort struct {
	candles      storage.CandleStore
	settings     storage.SettingsStore
	strategyKind string
	exchange     string
}

var _ evaluate.BacktestPort = (*StorePort)(nil)

// NewStorePort creates a StorePort for one strategy kind on one exchange.
func NewStorePort(candles storage.CandleStore, settings storage.SettingsStore, strategyKind, exchange string) *StorePort {
	return &StorePort{
		candles:      candles,
		settings:     settings,
		strategyKind: strategyKind,
		exchange:     exchange,
	}
}

// Backtest loads the owner's active settings and the requested candle range,
// overlays the candidate's parameters and simulates. Infrastructure failures
// come back as errors; an unusable simulation is an OK=false result.
func (p *StorePort) Backtest(ctx context.Context, req domain.TuningRequest, candidate domain.Candidate) (*domain.BacktestMetrics, error) {
	strategy, risk, err := p.settings.FindLatest(ctx, req.OwnerID, p.strategyKind)
	if err != nil {
		return nil, fmt.Errorf("load settings for owner %s: %w", req.OwnerID, err)
	}

	windowSize := strategy.WindowSize
	if v, ok := candidate.Int(domain.ParamWindowSize); ok {
		windowSize = v
	}
	threshold := strategy.PriceChangeThresholdPct
	if v, ok := candidate.Float(domain.ParamPriceChangeThreshold); ok {
		threshold = v
	}

	settings := domain.TradeSettingsFrom(risk)
	if v, ok := candidate.Float(domain.ParamTakeProfitPct); ok {
		settings.TakeProfitPct = v
	}
	if v, ok := candidate.Float(domain.ParamStopLossPct); ok {
		settings.StopLossPct = v
	}
	if v, ok := candidate.Float(domain.ParamRiskPerTradePct); ok {
		settings.RiskPerTradePct = v
	}

	rows, err := p.candles.GetRange(ctx, p.exchange, req.Symbol, req.Timeframe, req.StartAtMs, req.EndAtMs, 0)
	if err != nil {
		return nil, fmt.Errorf("load candles %s/%s/%s: %w", p.exchange, req.Symbol, req.Timeframe, err)
	}
	candles := make([]domain.Candle, len(rows))
	for i, row := range rows {
		candles[i] = *row
	}

	started := time.Now()
	metrics := Simulate(Input{
		OwnerID:                 req.OwnerID,
		Settings:                settings,
		Symbol:                  req.Symbol,
		Timeframe:               req.Timeframe,
		WindowSize:              windowSize,
		PriceChangeThresholdPct: threshold,
		Candles:                 candles,
		StartAtMs:               req.StartAtMs,
		EndAtMs:                 req.EndAtMs,
	})
	observability.RecordBacktest(time.Since(started).Seconds(), metrics.OK)

	return metrics, nil
}
