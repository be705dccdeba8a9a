package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// TuningRunStore is an in-memory implementation of storage.TuningRunStore.
type TuningRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TuningRun // keyed by run_id
}

// NewTuningRunStore creates a new in-memory tuning run store.
func NewTuningRunStore() *TuningRunStore {
	return &TuningRunStore{
		data: make(map[string]*domain.TuningRun),
	}
}

// Compile-time interface check.
var _ storage.TuningRunStore = (*TuningRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *TuningRunStore) Insert(_ context.Context, run *domain.TuningRun) error {
	if run == nil || run.RunID == "" || run.OwnerID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := copyRun(run)
	s.data[run.RunID] = runCopy
	return nil
}

// FindRecent retrieves runs for (owner, strategy kind), most recent first.
func (s *TuningRunStore) FindRecent(_ context.Context, ownerID, strategyKind string, limit int) ([]*domain.TuningRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*domain.TuningRun
	for _, run := range s.data {
		if run.OwnerID != ownerID || run.StrategyKind != strategyKind {
			continue
		}
		runs = append(runs, copyRun(run))
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtMs != runs[j].CreatedAtMs {
			return runs[i].CreatedAtMs > runs[j].CreatedAtMs
		}
		return runs[i].RunID > runs[j].RunID
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func copyRun(run *domain.TuningRun) *domain.TuningRun {
	runCopy := *run
	if run.BestScore != nil {
		score := *run.BestScore
		runCopy.BestScore = &score
	}
	if run.BestParams != nil {
		params := make(map[string]float64, len(run.BestParams))
		for k, v := range run.BestParams {
			params[k] = v
		}
		runCopy.BestParams = params
	}
	return &runCopy
}
