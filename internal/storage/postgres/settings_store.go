package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// GetStrategySettings retrieves strategy settings, creating defaults when none exist.
func (s *SettingsStore) GetStrategySettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.StrategySettings, error) {
	if ownerID == "" {
		return nil, storage.ErrInvalidInput
	}

	cfg, err := s.getStrategySettings(ctx, ownerID, strategyKind, exchange, network)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	created := domain.DefaultStrategySettings(ownerID, strategyKind, exchange, network)
	created.UpdatedAtMs = time.Now().UnixMilli()
	if err := s.PutStrategySettings(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// GetRiskSettings retrieves risk settings, creating defaults when none exist.
func (s *SettingsStore) GetRiskSettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.RiskSettings, error) {
	if ownerID == "" {
		return nil, storage.ErrInvalidInput
	}

	cfg, err := s.getRiskSettings(ctx, ownerID, strategyKind, exchange, network)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	created := domain.DefaultRiskSettings(ownerID, strategyKind, exchange, network)
	created.UpdatedAtMs = time.Now().UnixMilli()
	if err := s.PutRiskSettings(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// FindLatest retrieves the most recently updated settings pair for
// (owner, strategy kind). Returns ErrNotFound when none exist.
func (s *SettingsStore) FindLatest(ctx context.Context, ownerID, strategyKind string) (*domain.StrategySettings, *domain.RiskSettings, error) {
	query := `
		SELECT owner_id, strategy_kind, exchange, network,
			window_size, price_change_threshold_pct, updated_at_ms
		FROM strategy_settings
		WHERE owner_id = $1 AND strategy_kind = $2
		ORDER BY updated_at_ms DESC
		LIMIT 1
	`

	var cfg domain.StrategySettings
	err := s.pool.QueryRow(ctx, query, ownerID, strategyKind).Scan(
		&cfg.OwnerID, &cfg.StrategyKind, &cfg.Exchange, &cfg.Network,
		&cfg.WindowSize, &cfg.PriceChangeThresholdPct, &cfg.UpdatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, storage.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find latest strategy settings: %w", err)
	}

	risk, err := s.getRiskSettings(ctx, cfg.OwnerID, cfg.StrategyKind, cfg.Exchange, cfg.Network)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, storage.ErrNotFound
		}
		return nil, nil, err
	}

	return &cfg, risk, nil
}

// PutStrategySettings inserts or replaces strategy settings.
func (s *SettingsStore) PutStrategySettings(ctx context.Context, cfg *domain.StrategySettings) error {
	if cfg == nil || cfg.OwnerID == "" {
		return storage.ErrInvalidInput
	}
	if cfg.UpdatedAtMs == 0 {
		cfg.UpdatedAtMs = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO strategy_settings (
			owner_id, strategy_kind, exchange, network,
			window_size, price_change_threshold_pct, updated_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, strategy_kind, exchange, network) DO UPDATE SET
			window_size = EXCLUDED.window_size,
			price_change_threshold_pct = EXCLUDED.price_change_threshold_pct,
			updated_at_ms = EXCLUDED.updated_at_ms
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.OwnerID, cfg.StrategyKind, cfg.Exchange, cfg.Network,
		cfg.WindowSize, cfg.PriceChangeThresholdPct, cfg.UpdatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("put strategy settings: %w", err)
	}
	return nil
}

// PutRiskSettings inserts or replaces risk settings.
func (s *SettingsStore) PutRiskSettings(ctx context.Context, cfg *domain.RiskSettings) error {
	if cfg == nil || cfg.OwnerID == "" {
		return storage.ErrInvalidInput
	}
	if cfg.UpdatedAtMs == 0 {
		cfg.UpdatedAtMs = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO risk_settings (
			owner_id, strategy_kind, exchange, network,
			capital_usd, take_profit_pct, stop_loss_pct, commission_pct,
			cooldown_sec, risk_per_trade_pct, max_exposure_usd, max_exposure_pct,
			daily_loss_limit_pct, updated_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (owner_id, strategy_kind, exchange, network) DO UPDATE SET
			capital_usd = EXCLUDED.capital_usd,
			take_profit_pct = EXCLUDED.take_profit_pct,
			stop_loss_pct = EXCLUDED.stop_loss_pct,
			commission_pct = EXCLUDED.commission_pct,
			cooldown_sec = EXCLUDED.cooldown_sec,
			risk_per_trade_pct = EXCLUDED.risk_per_trade_pct,
			max_exposure_usd = EXCLUDED.max_exposure_usd,
			max_exposure_pct = EXCLUDED.max_exposure_pct,
			daily_loss_limit_pct = EXCLUDED.daily_loss_limit_pct,
			updated_at_ms = EXCLUDED.updated_at_ms
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.OwnerID, cfg.StrategyKind, cfg.Exchange, cfg.Network,
		cfg.CapitalUSD, cfg.TakeProfitPct, cfg.StopLossPct, cfg.CommissionPct,
		cfg.CooldownSec, cfg.RiskPerTradePct, cfg.MaxExposureUSD, cfg.MaxExposurePct,
		cfg.DailyLossLimitPct, cfg.UpdatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("put risk settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) getStrategySettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.StrategySettings, error) {
	query := `
		SELECT owner_id, strategy_kind, exchange, network,
			window_size, price_change_threshold_pct, updated_at_ms
		FROM strategy_settings
		WHERE owner_id = $1 AND strategy_kind = $2 AND exchange = $3 AND network = $4
	`

	var cfg domain.StrategySettings
	err := s.pool.QueryRow(ctx, query, ownerID, strategyKind, exchange, network).Scan(
		&cfg.OwnerID, &cfg.StrategyKind, &cfg.Exchange, &cfg.Network,
		&cfg.WindowSize, &cfg.PriceChangeThresholdPct, &cfg.UpdatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy settings: %w", err)
	}
	return &cfg, nil
}

func (s *SettingsStore) getRiskSettings(ctx context.Context, ownerID, strategyKind, exchange, network string) (*domain.RiskSettings, error) {
	query := `
		SELECT owner_id, strategy_kind, exchange, network,
			capital_usd, take_profit_pct, stop_loss_pct, commission_pct,
			cooldown_sec, risk_per_trade_pct, max_exposure_usd, max_exposure_pct,
			daily_loss_limit_pct, updated_at_ms
		FROM risk_settings
		WHERE owner_id = $1 AND strategy_kind = $2 AND exchange = $3 AND network = $4
	`

	var cfg domain.RiskSettings
	err := s.pool.QueryRow(ctx, query, ownerID, strategyKind, exchange, network).Scan(
		&cfg.OwnerID, &cfg.StrategyKind, &cfg.Exchange, &cfg.Network,
		&cfg.CapitalUSD, &cfg.TakeProfitPct, &cfg.StopLossPct, &cfg.CommissionPct,
		&cfg.CooldownSec, &cfg.RiskPerTradePct, &cfg.MaxExposureUSD, &cfg.MaxExposurePct,
		&cfg.DailyLossLimitPct, &cfg.UpdatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get risk settings: %w", err)
	}
	return &cfg, nil
}
