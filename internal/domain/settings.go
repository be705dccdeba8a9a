package domain

// StrategySettings holds the strategy-specific tunables for one owner on one
// exchange/network.
type StrategySettings struct {
	OwnerID      string
	StrategyKind string
	Exchange     string
	Network      string

	WindowSize              int
	PriceChangeThresholdPct float64

	UpdatedAtMs int64
}

// RiskSettings holds the common risk parameters shared by all strategies of
// one owner on one exchange/network.
type RiskSettings struct {
	OwnerID      string
	StrategyKind string
	Exchange     string
	Network      string

	CapitalUSD        float64
	TakeProfitPct     float64
	StopLossPct       float64
	CommissionPct     float64
	CooldownSec       int
	RiskPerTradePct   float64
	MaxExposureUSD    float64
	MaxExposurePct    float64
	DailyLossLimitPct float64

	UpdatedAtMs int64
}

// TradeSettings are the merged inputs the backtest simulator executes with.
type TradeSettings struct {
	CapitalUSD      float64
	TakeProfitPct   float64
	StopLossPct     float64
	CommissionPct   float64
	CooldownSec     int
	RiskPerTradePct float64
	MaxExposureUSD  float64
	MaxExposurePct  float64
}

// DefaultStrategySettings returns the settings created on first access for an
// owner that has never configured the strategy.
func DefaultStrategySettings(ownerID, strategyKind, exchange, network string) *StrategySettings {
	return &StrategySettings{
		OwnerID:                 ownerID,
		StrategyKind:            strategyKind,
		Exchange:                exchange,
		Network:                 network,
		WindowSize:              5,
		PriceChangeThresholdPct: 1.0,
	}
}

// DefaultRiskSettings returns the risk settings created on first access.
func DefaultRiskSettings(ownerID, strategyKind, exchange, network string) *RiskSettings {
	return &RiskSettings{
		OwnerID:           ownerID,
		StrategyKind:      strategyKind,
		Exchange:          exchange,
		Network:           network,
		CapitalUSD:        1000,
		TakeProfitPct:     2.0,
		StopLossPct:       1.0,
		CommissionPct:     0.1,
		CooldownSec:       60,
		RiskPerTradePct:   2.0,
		MaxExposureUSD:    5000,
		MaxExposurePct:    50,
		DailyLossLimitPct: 5.0,
	}
}

// TradeSettingsFrom merges risk settings into the simulator's input shape.
func TradeSettingsFrom(r *RiskSettings) *TradeSettings {
	if r == nil {
		return nil
	}
	return &TradeSettings{
		CapitalUSD:      r.CapitalUSD,
		TakeProfitPct:   r.TakeProfitPct,
		StopLossPct:     r.StopLossPct,
		CommissionPct:   r.CommissionPct,
		CooldownSec:     r.CooldownSec,
		RiskPerTradePct: r.RiskPerTradePct,
		MaxExposureUSD:  r.MaxExposureUSD,
		MaxExposurePct:  r.MaxExposurePct,
	}
}
