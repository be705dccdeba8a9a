package domain

// BacktestMetrics is the result of one simulated backtest. OK=false carries a
// human-readable Reason and leaves every numeric field meaningless; this is
// how simulation failure is signalled without an error return.
type BacktestMetrics struct {
	OK     bool
	Reason string

	OwnerID   string
	Symbol    string
	Timeframe string
	StartAtMs int64
	EndAtMs   int64

	ProfitPct      float64
	MaxDrawdownPct float64
	Trades         int
	Wins           int
	Losses         int
	WinRatePct     float64
}

// CandidateEvaluation pairs one candidate with its backtest outcome. Either
// Metrics and Score are populated (success) or Err is non-empty (failure);
// an evaluation with a non-empty Err never carries a usable score.
type CandidateEvaluation struct {
	Candidate Candidate
	Metrics   *BacktestMetrics
	Score     *float64
	Err       string
}
