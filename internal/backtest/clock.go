package backtest

import (
	"strings"
	"time"

	"strategy-tuner/internal/domain"
)

// Clock resolves the timestamp of a candle within a series. Implementations
// return ok=false when no usable timestamp can be produced for the bar; the
// simulator then falls back to its synthetic clock, never to an error.
type Clock interface {
	TimeOf(c domain.Candle, index int) (int64, bool)
}

// CandleClock reads the timestamp carried by the candle itself.
type CandleClock struct{}

// TimeOf returns the candle's own timestamp; zero means the upstream source
// did not provide one.
func (CandleClock) TimeOf(c domain.Candle, _ int) (int64, bool) {
	return c.TimestampMs, c.TimestampMs > 0
}

// SyntheticClock derives a strictly increasing timestamp from a start time
// and a fixed bar duration. It never fails.
type SyntheticClock struct {
	StartAtMs int64
	Bar       time.Duration
}

// TimeOf returns StartAt + index * bar duration.
func (s SyntheticClock) TimeOf(_ domain.Candle, index int) (int64, bool) {
	bar := s.Bar
	if bar <= 0 {
		bar = time.Minute
	}
	return s.StartAtMs + int64(index)*bar.Milliseconds(), true
}

// ParseTimeframe converts a timeframe label such as "1m", "15m", "4h" or "1d"
// into a bar duration. Unrecognized labels fall back to one minute; the
// synthetic clock must always be able to tick.
func ParseTimeframe(timeframe string) time.Duration {
	tf := strings.TrimSpace(strings.ToLower(timeframe))
	if tf == "" {
		return time.Minute
	}

	unit := tf[len(tf)-1]
	num := tf[:len(tf)-1]
	n := int64(0)
	for _, r := range num {
		if r < '0' || r > '9' {
			return time.Minute
		}
		n = n*10 + int64(r-'0')
	}
	if n <= 0 {
		return time.Minute
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return time.Minute
	}
}
