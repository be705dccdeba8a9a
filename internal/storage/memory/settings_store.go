package memory

import (
	"context"
	"sync"
	"time"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu       sync.RWMutex
	strategy map[settingsKey]*domain.StrategySettings
	risk     map[settingsKey]*domain.RiskSettings
	now      func() time.Time
}

type settingsKey struct {
	ownerID      string
	strategyKind string
	exchange     string
	network      string
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		strategy: make(map[settingsKey]*domain.StrategySettings),
		risk:     make(map[settingsKey]*domain.RiskSettings),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// GetStrategySettings retrieves strategy settings, creating defaults when none exist.
func (s *SettingsStore) GetStrategySettings(_ context.Context, ownerID, strategyKind, exchange, network string) (*domain.StrategySettings, error) {
	if ownerID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := settingsKey{ownerID, strategyKind, exchange, network}
	if existing, ok := s.strategy[k]; ok {
		settingsCopy := *existing
		return &settingsCopy, nil
	}

	created := domain.DefaultStrategySettings(ownerID, strategyKind, exchange, network)
	created.UpdatedAtMs = s.now().UnixMilli()
	s.strategy[k] = created

	settingsCopy := *created
	return &settingsCopy, nil
}

// GetRiskSettings retrieves risk settings, creating defaults when none exist.
func (s *SettingsStore) GetRiskSettings(_ context.Context, ownerID, strategyKind, exchange, network string) (*domain.RiskSettings, error) {
	if ownerID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := settingsKey{ownerID, strategyKind, exchange, network}
	if existing, ok := s.risk[k]; ok {
		settingsCopy := *existing
		return &settingsCopy, nil
	}

	created := domain.DefaultRiskSettings(ownerID, strategyKind, exchange, network)
	created.UpdatedAtMs = s.now().UnixMilli()
	s.risk[k] = created

	settingsCopy := *created
	return &settingsCopy, nil
}

// FindLatest retrieves the most recently updated settings pair for
// (owner, strategy kind). Returns ErrNotFound when none exist.
func (s *SettingsStore) FindLatest(_ context.Context, ownerID, strategyKind string) (*domain.StrategySettings, *domain.RiskSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.StrategySettings
	for k, cfg := range s.strategy {
		if k.ownerID != ownerID || k.strategyKind != strategyKind {
			continue
		}
		if latest == nil || cfg.UpdatedAtMs > latest.UpdatedAtMs {
			latest = cfg
		}
	}
	if latest == nil {
		return nil, nil, storage.ErrNotFound
	}

	k := settingsKey{latest.OwnerID, latest.StrategyKind, latest.Exchange, latest.Network}
	risk, ok := s.risk[k]
	if !ok {
		return nil, nil, storage.ErrNotFound
	}

	strategyCopy := *latest
	riskCopy := *risk
	return &strategyCopy, &riskCopy, nil
}

// PutStrategySettings inserts or replaces strategy settings.
func (s *SettingsStore) PutStrategySettings(_ context.Context, cfg *domain.StrategySettings) error {
	if cfg == nil || cfg.OwnerID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settingsCopy := *cfg
	if settingsCopy.UpdatedAtMs == 0 {
		settingsCopy.UpdatedAtMs = s.now().UnixMilli()
	}
	s.strategy[settingsKey{cfg.OwnerID, cfg.StrategyKind, cfg.Exchange, cfg.Network}] = &settingsCopy
	return nil
}

// PutRiskSettings inserts or replaces risk settings.
func (s *SettingsStore) PutRiskSettings(_ context.Context, cfg *domain.RiskSettings) error {
	if cfg == nil || cfg.OwnerID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settingsCopy := *cfg
	if settingsCopy.UpdatedAtMs == 0 {
		settingsCopy.UpdatedAtMs = s.now().UnixMilli()
	}
	s.risk[settingsKey{cfg.OwnerID, cfg.StrategyKind, cfg.Exchange, cfg.Network}] = &settingsCopy
	return nil
}
