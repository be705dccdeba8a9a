package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// TuningRunStore implements storage.TuningRunStore using PostgreSQL.
type TuningRunStore struct {
	pool *Pool
}

// NewTuningRunStore creates a new TuningRunStore.
func NewTuningRunStore(pool *Pool) *TuningRunStore {
	return &TuningRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TuningRunStore = (*TuningRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *TuningRunStore) Insert(ctx context.Context, run *domain.TuningRun) error {
	if run == nil || run.RunID == "" || run.OwnerID == "" {
		return storage.ErrInvalidInput
	}

	var bestParams []byte
	if run.BestParams != nil {
		var err error
		bestParams, err = json.Marshal(run.BestParams)
		if err != nil {
			return fmt.Errorf("marshal best params: %w", err)
		}
	}

	query := `
		INSERT INTO tuning_runs (
			run_id, owner_id, strategy_kind, created_at_ms, best_score, best_params
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.OwnerID, run.StrategyKind, run.CreatedAtMs,
		run.BestScore, bestParams,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tuning run: %w", err)
	}
	return nil
}

// FindRecent retrieves runs for (owner, strategy kind), most recent first.
func (s *TuningRunStore) FindRecent(ctx context.Context, ownerID, strategyKind string, limit int) ([]*domain.TuningRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, owner_id, strategy_kind, created_at_ms, best_score, best_params
		FROM tuning_runs
		WHERE owner_id = $1 AND strategy_kind = $2
		ORDER BY created_at_ms DESC, run_id DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, ownerID, strategyKind, limit)
	if err != nil {
		return nil, fmt.Errorf("find recent tuning runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.TuningRun
	for rows.Next() {
		var run domain.TuningRun
		var bestParams []byte
		err := rows.Scan(
			&run.RunID, &run.OwnerID, &run.StrategyKind, &run.CreatedAtMs,
			&run.BestScore, &bestParams,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tuning run row: %w", err)
		}
		if len(bestParams) > 0 {
			if err := json.Unmarshal(bestParams, &run.BestParams); err != nil {
				return nil, fmt.Errorf("unmarshal best params: %w", err)
			}
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tuning run rows: %w", err)
	}

	return runs, nil
}
