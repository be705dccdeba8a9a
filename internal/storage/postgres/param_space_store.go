package postgres

import (
	"context"
	"fmt"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// ParamSpaceStore implements storage.ParamSpaceStore using PostgreSQL.
type ParamSpaceStore struct {
	pool *Pool
}

// NewParamSpaceStore creates a new ParamSpaceStore.
func NewParamSpaceStore(pool *Pool) *ParamSpaceStore {
	return &ParamSpaceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParamSpaceStore = (*ParamSpaceStore)(nil)

// Insert adds a new space entry. Returns ErrDuplicateKey if (strategy_kind, name) exists.
func (s *ParamSpaceStore) Insert(ctx context.Context, item *domain.ParamSpaceItem) error {
	if item == nil || item.Name == "" || item.StrategyKind == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO param_space (
			strategy_kind, name, value_type, min_value, max_value, step, enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		item.StrategyKind, item.Name, item.ValueType,
		item.Min, item.Max, item.Step, item.Enabled,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert param space entry: %w", err)
	}
	return nil
}

// GetByStrategyKind retrieves all entries for a strategy kind, ordered by name ASC.
func (s *ParamSpaceStore) GetByStrategyKind(ctx context.Context, strategyKind string) ([]*domain.ParamSpaceItem, error) {
	query := `
		SELECT strategy_kind, name, value_type, min_value, max_value, step, enabled
		FROM param_space
		WHERE strategy_kind = $1
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyKind)
	if err != nil {
		return nil, fmt.Errorf("get param space by strategy kind: %w", err)
	}
	defer rows.Close()

	var items []*domain.ParamSpaceItem
	for rows.Next() {
		var item domain.ParamSpaceItem
		err := rows.Scan(
			&item.StrategyKind, &item.Name, &item.ValueType,
			&item.Min, &item.Max, &item.Step, &item.Enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("scan param space row: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate param space rows: %w", err)
	}

	return items, nil
}
