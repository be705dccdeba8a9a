package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[seriesKey][]*domain.Candle
}

type seriesKey struct {
	exchange  string
	symbol    string
	timeframe string
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[seriesKey][]*domain.Candle),
	}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles for one series.
func (s *CandleStore) InsertBulk(_ context.Context, exchange, symbol, timeframe string, candles []*domain.Candle) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := seriesKey{exchange, symbol, timeframe}
	for _, c := range candles {
		candleCopy := *c
		s.data[k] = append(s.data[k], &candleCopy)
	}

	sort.SliceStable(s.data[k], func(i, j int) bool {
		return s.data[k][i].TimestampMs < s.data[k][j].TimestampMs
	})
	return nil
}

// GetRange retrieves candles within [startMs, endMs] in ascending order.
func (s *CandleStore) GetRange(_ context.Context, exchange, symbol, timeframe string, startMs, endMs int64, limit int) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Candle
	for _, c := range s.data[seriesKey{exchange, symbol, timeframe}] {
		if startMs > 0 && c.TimestampMs < startMs {
			continue
		}
		if endMs > 0 && c.TimestampMs > endMs {
			continue
		}
		candleCopy := *c
		out = append(out, &candleCopy)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
