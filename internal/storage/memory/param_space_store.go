package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// ParamSpaceStore is an in-memory implementation of storage.ParamSpaceStore.
type ParamSpaceStore struct {
	mu   sync.RWMutex
	data map[spaceKey]*domain.ParamSpaceItem
}

type spaceKey struct {
	strategyKind string
	name         string
}

// NewParamSpaceStore creates a new in-memory param space store.
func NewParamSpaceStore() *ParamSpaceStore {
	return &ParamSpaceStore{
		data: make(map[spaceKey]*domain.ParamSpaceItem),
	}
}

// Compile-time interface check.
var _ storage.ParamSpaceStore = (*ParamSpaceStore)(nil)

// Insert adds a new space entry. Returns ErrDuplicateKey if (strategy_kind, name) exists.
func (s *ParamSpaceStore) Insert(_ context.Context, item *domain.ParamSpaceItem) error {
	if item == nil || item.Name == "" || item.StrategyKind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := spaceKey{item.StrategyKind, item.Name}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	itemCopy := *item
	s.data[k] = &itemCopy
	return nil
}

// GetByStrategyKind retrieves all entries for a strategy kind, ordered by name ASC.
func (s *ParamSpaceStore) GetByStrategyKind(_ context.Context, strategyKind string) ([]*domain.ParamSpaceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*domain.ParamSpaceItem
	for k, item := range s.data {
		if k.strategyKind != strategyKind {
			continue
		}
		itemCopy := *item
		items = append(items, &itemCopy)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items, nil
}
