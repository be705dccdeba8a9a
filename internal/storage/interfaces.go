package storage

import (
	"context"

	"strategy-tuner/internal/domain"
)

// ParamSpaceStore provides access to param_space storage.
type ParamSpaceStore interface {
	// Insert adds a new space entry. Returns ErrDuplicateKey if
	// (strategy_kind, name) exists.
	Insert(ctx context.Context, item *domain.ParamSpaceItem) error

	// GetByStrategyKind retrieves all entries for a strategy kind,
	// ordered by name ASC.
	GetByStrategyKind(ctx context.Context, strategyKind string) ([]*domain.ParamSpaceItem, error)
}

// SettingsStore provides access to strategy and risk settings storage.
type SettingsStore interface {
	// GetStrategySettings retrieves the strategy-specific settings for an
	// owner, creating defaults when none exist (get-or-create).
	GetStrategySettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.StrategySettings, error)

	// GetRiskSettings retrieves the common risk settings for an owner,
	// creating defaults when none exist (get-or-create).
	GetRiskSettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.RiskSettings, error)

	// FindLatest retrieves the most recently updated strategy and risk
	// settings pair for (owner, strategy kind). Returns ErrNotFound when the
	// owner has never configured the strategy.
	FindLatest(ctx context.Context, ownerID, strategyKind string) (*domain.StrategySettings, *domain.RiskSettings, error)

	// PutStrategySettings inserts or replaces strategy settings.
	PutStrategySettings(ctx context.Context, s *domain.StrategySettings) error

	// PutRiskSettings inserts or replaces risk settings.
	PutRiskSettings(ctx context.Context, r *domain.RiskSettings) error
}

// TuningRunStore provides access to tuning_runs storage.
type TuningRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.TuningRun) error

	// FindRecent retrieves runs for (owner, strategy kind), most recent
	// first, limited to at most limit rows.
	FindRecent(ctx context.Context, ownerID, strategyKind string, limit int) ([]*domain.TuningRun, error)
}

// CandleStore provides access to historical candle storage. Candles are
// market data shared across owners and keyed by exchange/symbol/timeframe.
type CandleStore interface {
	// InsertBulk adds multiple candles for one series.
	InsertBulk(ctx context.Context, exchange, symbol, timeframe string, candles []*domain.Candle) error

	// GetRange retrieves candles within [startMs, endMs] in ascending
	// chronological order. limit <= 0 means no limit. Consumers rely on the
	// ordering and do not re-sort.
	GetRange(ctx context.Context, exchange, symbol, timeframe string, startMs, endMs int64, limit int) ([]*domain.Candle, error)
}
