package domain

import "github.com/shopspring/decimal"

// Candle represents one OHLC bar of market data.
// Prices are fixed-point decimals as delivered by upstream sources.
// TimestampMs may be zero when the upstream source did not carry a usable
// timestamp; the simulator substitutes a synthetic clock in that case.
type Candle struct {
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	TimestampMs int64
}

// NewCandle builds a candle from float prices. Intended for tests and
// fixtures; production paths construct decimals directly from wire strings.
func NewCandle(open, high, low, closePrice float64, timestampMs int64) Candle {
	return Candle{
		Open:        decimal.NewFromFloat(open),
		High:        decimal.NewFromFloat(high),
		Low:         decimal.NewFromFloat(low),
		Close:       decimal.NewFromFloat(closePrice),
		TimestampMs: timestampMs,
	}
}
