package scoring

import (
	"testing"

	"strategy-tuner/internal/domain"
)

func okMetrics(profit, drawdown float64, trades int) *domain.BacktestMetrics {
	return &domain.BacktestMetrics{
		OK:             true,
		ProfitPct:      profit,
		MaxDrawdownPct: drawdown,
		Trades:         trades,
	}
}

func TestScore_Sentinel(t *testing.T) {
	if got := Score(nil); got != SentinelScore {
		t.Errorf("Score(nil) = %v, want sentinel", got)
	}
	if got := Score(&domain.BacktestMetrics{OK: false, Reason: "not enough candles"}); got != SentinelScore {
		t.Errorf("Score(failed) = %v, want sentinel", got)
	}
}

func TestScore_Formula(t *testing.T) {
	m := okMetrics(10, 5, 20)
	// 10 - 0.6*5 + 0.2*log10(21) = 7.264443..., half-up to 4 places.
	want := 7.2644

	if got := Score(m); got != want {
		t.Errorf("Score() = %v, want %v", got, want)
	}
}

func TestScore_RoundedToFourDecimals(t *testing.T) {
	// Raw composite is 0.9980973004613674; the reported score carries the
	// same fixed precision as the simulator's percentages.
	m := okMetrics(1.23456789, 0.7654321, 12)

	if got := Score(m); got != 0.9981 {
		t.Errorf("Score() = %v, want 0.9981", got)
	}
}

func TestScore_LowTradePenalty(t *testing.T) {
	few := Score(okMetrics(10, 5, 9))
	enough := Score(okMetrics(10, 5, 10))

	// Identical except the trade count crossing the significance floor: the
	// penalized score must sit well below the unpenalized one.
	if few >= enough {
		t.Errorf("Score(9 trades) = %v not below Score(10 trades) = %v", few, enough)
	}
	if diff := enough - few; diff < 4.5 {
		t.Errorf("penalty gap = %v, want about 5", diff)
	}
}

func TestScore_Ordering(t *testing.T) {
	terrible := Score(okMetrics(-90, 80, 200))
	if terrible <= SentinelScore {
		t.Errorf("real score %v must beat the sentinel", terrible)
	}

	better := Score(okMetrics(20, 3, 50))
	worse := Score(okMetrics(5, 10, 50))
	if better <= worse {
		t.Errorf("Score ordering wrong: %v <= %v", better, worse)
	}
}

func TestScore_DrawdownPenalizes(t *testing.T) {
	calm := Score(okMetrics(10, 1, 30))
	volatile := Score(okMetrics(10, 20, 30))
	if calm <= volatile {
		t.Errorf("drawdown not penalized: calm %v <= volatile %v", calm, volatile)
	}
}

func TestScore_ZeroTrades(t *testing.T) {
	got := Score(okMetrics(0, 0, 0))
	if got != -5.0 {
		t.Errorf("Score(no trades) = %v, want -5", got)
	}
}
