package domain

// Strategy kinds known to the tuner.
const (
	StrategyKindPriceChange = "PRICE_CHANGE"
)

// Canonical parameter names shared by the parameter space, the settings
// snapshot and the simulator inputs.
const (
	ParamWindowSize           = "windowSize"
	ParamPriceChangeThreshold = "priceChangeThreshold"
	ParamTakeProfitPct        = "takeProfitPct"
	ParamStopLossPct          = "stopLossPct"
	ParamRiskPerTradePct      = "riskPerTradePct"
	ParamDailyLossLimitPct    = "dailyLossLimitPct"
)

// GuardDecision is the outcome of a guard check. Business denials are
// expressed here, never as errors.
type GuardDecision struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing decision.
func Allow() GuardDecision {
	return GuardDecision{Allowed: true}
}

// Deny returns a denying decision with a human-readable reason.
func Deny(reason string) GuardDecision {
	return GuardDecision{Allowed: false, Reason: reason}
}

// TuningRequest is the input to one tuning cycle. OwnerID is mandatory;
// everything else falls back to configured defaults.
type TuningRequest struct {
	OwnerID   string
	Seed      *int64
	StartAtMs int64
	EndAtMs   int64
	Symbol    string
	Timeframe string
}

// TuningResult describes how one tuning cycle terminated. It is always
// returned, including on early exits. Applied stays false for every path in
// the current cycle: promotion of a winning candidate is handled upstream.
type TuningResult struct {
	Applied   bool
	Reason    string
	OldParams map[string]ParamValue
	Generated int
	Filtered  int
}

// TuningRun is one recorded tuning run, used by the frequency guard to
// rate-limit cycles per (owner, strategy kind).
type TuningRun struct {
	RunID        string
	OwnerID      string
	StrategyKind string
	CreatedAtMs  int64
	BestScore    *float64
	BestParams   map[string]float64
}
