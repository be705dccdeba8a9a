package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles for one series. The candles table is a
// ReplacingMergeTree keyed by (exchange, symbol, timeframe, ts_ms), so
// re-ingesting the same bar is harmless.
func (s *CandleStore) InsertBulk(ctx context.Context, exchange, symbol, timeframe string, candles []*domain.Candle) (err error) {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	started := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "candles_insert_bulk", time.Since(started).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			exchange, symbol, timeframe, ts_ms, open, high, low, close
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			exchange, symbol, timeframe, uint64(c.TimestampMs),
			c.Open, c.High, c.Low, c.Close,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves candles within [startMs, endMs] in ascending order.
func (s *CandleStore) GetRange(ctx context.Context, exchange, symbol, timeframe string, startMs, endMs int64, limit int) (_ []*domain.Candle, err error) {
	started := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "candles_get_range", time.Since(started).Seconds(), err)
	}()

	query := `
		SELECT ts_ms, open, high, low, close
		FROM candles
		WHERE exchange = ? AND symbol = ? AND timeframe = ?
	`
	args := []any{exchange, symbol, timeframe}

	if startMs > 0 {
		query += " AND ts_ms >= ?"
		args = append(args, uint64(startMs))
	}
	if endMs > 0 {
		query += " AND ts_ms <= ?"
		args = append(args, uint64(endMs))
	}
	query += " ORDER BY ts_ms ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candle range: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		var tsMs uint64
		var open, high, low, closePrice decimal.Decimal

		if err := rows.Scan(&tsMs, &open, &high, &low, &closePrice); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.TimestampMs = int64(tsMs)
		c.Open = open
		c.High = high
		c.Low = low
		c.Close = closePrice
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
