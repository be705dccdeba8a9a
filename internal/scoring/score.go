// Package scoring collapses backtest metrics into a single comparable score.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"strategy-tuner/internal/domain"
)

// SentinelScore marks an unusable result. Any real score, however bad, beats
// it, so sentinel results always sort last among scored candidates.
const SentinelScore = -1_000_000.0

// Weights of the composite score. Profit rewards returns, drawdown penalizes
// equity swings, and the log term gives mild credit for statistical
// significance without letting trade count dominate.
const (
	drawdownWeight   = 0.6
	activityWeight   = 0.2
	lowTradesPenalty = 5.0
	minTrades        = 10
)

// Score ranks one backtest result. Failed or nil metrics score the sentinel.
func Score(m *domain.BacktestMetrics) float64 {
	if m == nil || !m.OK {
		return SentinelScore
	}

	score := m.ProfitPct -
		drawdownWeight*m.MaxDrawdownPct +
		activityWeight*math.Log10(float64(m.Trades)+1)

	if m.Trades < minTrades {
		score -= lowTradesPenalty
	}
	return roundHalfUp(score, 4)
}

// roundHalfUp rounds to the same fixed precision the simulator reports its
// percentages with, so equal-performing candidates compare equal.
func roundHalfUp(v float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}
