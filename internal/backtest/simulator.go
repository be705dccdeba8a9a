// Package backtest implements the deterministic market-replay simulator: it
// re-executes the price-change strategy's entry/exit logic over a candle
// series and reports performance metrics for one candidate parameter set.
package backtest

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"strategy-tuner/internal/domain"
)

// minCandles is the smallest series the simulator accepts.
const minCandles = 5

// roundPlaces is the fixed decimal precision of reported percentages.
const roundPlaces = 4

// Input carries everything one simulation needs. The candle sequence must be
// in ascending chronological order; the simulator does not re-sort.
type Input struct {
	OwnerID   string
	Settings  *domain.TradeSettings
	Symbol    string
	Timeframe string

	// Candidate parameters under test.
	WindowSize              int
	PriceChangeThresholdPct float64

	Candles   []domain.Candle
	StartAtMs int64
	EndAtMs   int64

	// Clock resolves bar timestamps. Nil defaults to CandleClock with a
	// synthetic fallback derived from StartAtMs and Timeframe.
	Clock Clock
}

// position is the open-trade state during the replay pass.
type position struct {
	long            bool
	entryPrice      float64
	units           float64
	takeProfitPrice float64
	stopLossPrice   float64
	entryCommission float64
}

// Simulate replays the strategy over the candle series. It never returns an
// error: caller mistakes and unusable inputs come back as OK=false metrics
// with a reason, so a failed simulation is an ordinary value.
func Simulate(in Input) *domain.BacktestMetrics {
	m := &domain.BacktestMetrics{
		OwnerID:   in.OwnerID,
		Symbol:    in.Symbol,
		Timeframe: in.Timeframe,
		StartAtMs: in.StartAtMs,
		EndAtMs:   in.EndAtMs,
	}

	if len(in.Candles) < minCandles {
		m.Reason = fmt.Sprintf("not enough candles: have %d, need at least %d", len(in.Candles), minCandles)
		return m
	}
	if in.Settings == nil {
		m.Reason = "missing trade settings"
		return m
	}
	if in.Settings.CapitalUSD <= 0 {
		m.Reason = fmt.Sprintf("starting capital must be positive, got %v", in.Settings.CapitalUSD)
		return m
	}
	if in.WindowSize <= 0 {
		m.Reason = fmt.Sprintf("window size must be positive, got %d", in.WindowSize)
		return m
	}
	if in.PriceChangeThresholdPct <= 0 {
		m.Reason = fmt.Sprintf("price change threshold must be positive, got %v", in.PriceChangeThresholdPct)
		return m
	}

	clock := in.Clock
	if clock == nil {
		clock = CandleClock{}
	}
	synthetic := SyntheticClock{StartAtMs: in.StartAtMs, Bar: ParseTimeframe(in.Timeframe)}

	s := in.Settings
	equity := s.CapitalUSD
	peak := equity
	maxDrawdownPct := 0.0

	window := make([]float64, 0, in.WindowSize)
	var pos *position
	var trades, wins, losses int
	cooldownMs := int64(s.CooldownSec) * 1000
	lastExitAtMs := int64(0)
	hasExited := false

	for i, candle := range in.Candles {
		barTime, ok := clock.TimeOf(candle, i)
		if !ok {
			barTime, _ = synthetic.TimeOf(candle, i)
		}

		high, _ := candle.High.Float64()
		low, _ := candle.Low.Float64()
		closePrice, _ := candle.Close.Float64()

		exitedThisBar := false
		if pos != nil {
			exitPrice, exited := checkExit(pos, high, low)
			if exited {
				exitNotional := pos.units * exitPrice
				exitCommission := exitNotional * s.CommissionPct / 100

				var realized float64
				if pos.long {
					realized = pos.units * (exitPrice - pos.entryPrice)
				} else {
					realized = pos.units * (pos.entryPrice - exitPrice)
				}

				// Entry commission was already charged at entry; the
				// win/loss classification still uses the full round trip.
				equity += realized - exitCommission
				netPnL := realized - exitCommission - pos.entryCommission

				trades++
				if netPnL >= 0 {
					wins++
				} else {
					losses++
				}

				pos = nil
				window = window[:0]
				lastExitAtMs = barTime
				hasExited = true
				exitedThisBar = true
			}
		}

		if !exitedThisBar {
			window = append(window, closePrice)
			if len(window) > in.WindowSize {
				window = window[1:]
			}

			if pos == nil && len(window) == in.WindowSize {
				inCooldown := cooldownMs > 0 && hasExited && barTime-lastExitAtMs < cooldownMs
				if !inCooldown {
					oldest := window[0]
					newest := window[len(window)-1]
					if oldest != 0 {
						changePct := (newest - oldest) / oldest * 100
						if math.Abs(changePct) >= in.PriceChangeThresholdPct {
							if opened := openPosition(s, equity, closePrice, changePct > 0); opened != nil {
								equity -= opened.entryCommission
								pos = opened
								window = window[:0]
							}
						}
					}
				}
			}
		}

		// Mark-to-market equity includes unrealized P&L of an open position.
		mtm := equity
		if pos != nil {
			if pos.long {
				mtm += pos.units * (closePrice - pos.entryPrice)
			} else {
				mtm += pos.units * (pos.entryPrice - closePrice)
			}
		}
		if mtm > peak {
			peak = mtm
		}
		if peak > 0 {
			dd := (peak - mtm) / peak * 100
			if dd > maxDrawdownPct {
				maxDrawdownPct = dd
			}
		}
	}

	m.OK = true
	m.Trades = trades
	m.Wins = wins
	m.Losses = losses
	m.ProfitPct = roundHalfUp((equity-s.CapitalUSD)/s.CapitalUSD*100, roundPlaces)
	m.MaxDrawdownPct = roundHalfUp(maxDrawdownPct, roundPlaces)
	if trades > 0 {
		m.WinRatePct = roundHalfUp(float64(wins)/float64(trades)*100, roundPlaces)
	}
	return m
}

// checkExit reports whether the bar touched the position's take-profit or
// stop-loss level and at which price the fill is assumed. When both levels
// are touched within the same bar the stop-loss wins: intra-bar ordering is
// unknown, so the conservative outcome is reported.
func checkExit(pos *position, high, low float64) (float64, bool) {
	var tpHit, slHit bool
	if pos.long {
		tpHit = high >= pos.takeProfitPrice
		slHit = low <= pos.stopLossPrice
	} else {
		tpHit = low <= pos.takeProfitPrice
		slHit = high >= pos.stopLossPrice
	}

	switch {
	case slHit:
		return pos.stopLossPrice, true
	case tpHit:
		return pos.takeProfitPrice, true
	default:
		return 0, false
	}
}

// openPosition sizes and prices a new position at the given entry. Returns
// nil when sizing resolves to nothing tradable.
func openPosition(s *domain.TradeSettings, equity, entryPrice float64, long bool) *position {
	if entryPrice <= 0 || equity <= 0 {
		return nil
	}

	notional := s.CapitalUSD
	if s.RiskPerTradePct > 0 {
		riskBased := equity * s.RiskPerTradePct / 100
		if riskBased < notional {
			notional = riskBased
		}
	}

	// Exposure cap: the smaller of the fixed USD cap and the percentage cap,
	// itself never above current equity.
	cap := equity
	if s.MaxExposureUSD > 0 && s.MaxExposureUSD < cap {
		cap = s.MaxExposureUSD
	}
	if s.MaxExposurePct > 0 {
		pctCap := equity * s.MaxExposurePct / 100
		if pctCap < cap {
			cap = pctCap
		}
	}
	if notional > cap {
		notional = cap
	}
	if notional <= 0 {
		return nil
	}

	pos := &position{
		long:            long,
		entryPrice:      entryPrice,
		units:           notional / entryPrice,
		entryCommission: notional * s.CommissionPct / 100,
	}
	if long {
		pos.takeProfitPrice = entryPrice * (1 + s.TakeProfitPct/100)
		pos.stopLossPrice = entryPrice * (1 - s.StopLossPct/100)
	} else {
		pos.takeProfitPrice = entryPrice * (1 - s.TakeProfitPct/100)
		pos.stopLossPrice = entryPrice * (1 + s.StopLossPct/100)
	}
	return pos
}

// roundHalfUp rounds to the given number of decimal places, half away from
// zero, matching how reported percentages are fixed elsewhere in the system.
func roundHalfUp(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
