package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-tuner/internal/domain"
)

type fakeRunStore struct {
	runs []*domain.TuningRun
	err  error
}

func (f *fakeRunStore) Insert(ctx context.Context, run *domain.TuningRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunStore) FindRecent(ctx context.Context, ownerID, strategyKind string, limit int) ([]*domain.TuningRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

func enabledConfig() Config {
	return Config{
		Enabled:          true,
		MinIntervalHours: 24,
		RequireTPAboveSL: true,
		MaxDeltaPct:      0.5,
	}
}

func newTestGuard(cfg Config, store *fakeRunStore, now time.Time) *Guard {
	g := New(cfg, domain.StrategyKindPriceChange, store)
	g.now = func() time.Time { return now }
	return g
}

func TestCheckFrequency(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		cfg         Config
		lastRunAgo  time.Duration
		noHistory   bool
		wantAllowed bool
	}{
		{
			name:        "disabled guard always allows",
			cfg:         Config{Enabled: false, MinIntervalHours: 24},
			lastRunAgo:  time.Hour,
			wantAllowed: true,
		},
		{
			name:        "no history allows",
			cfg:         enabledConfig(),
			noHistory:   true,
			wantAllowed: true,
		},
		{
			name:        "recent run denies",
			cfg:         enabledConfig(),
			lastRunAgo:  2 * time.Hour,
			wantAllowed: false,
		},
		{
			name:        "elapsed interval allows",
			cfg:         enabledConfig(),
			lastRunAgo:  25 * time.Hour,
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRunStore{}
			if !tt.noHistory {
				store.runs = []*domain.TuningRun{{
					RunID:        "run-1",
					OwnerID:      "owner-1",
					StrategyKind: domain.StrategyKindPriceChange,
					CreatedAtMs:  now.Add(-tt.lastRunAgo).UnixMilli(),
				}}
			}

			g := newTestGuard(tt.cfg, store, now)
			decision, err := g.CheckFrequency(context.Background(), "owner-1")
			if err != nil {
				t.Fatalf("CheckFrequency() error = %v", err)
			}
			if decision.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason: %s)", decision.Allowed, tt.wantAllowed, decision.Reason)
			}
			if !decision.Allowed && decision.Reason == "" {
				t.Error("denial carries no reason")
			}
		})
	}
}

func TestCheckFrequency_StoreError(t *testing.T) {
	store := &fakeRunStore{err: errors.New("connection refused")}
	g := newTestGuard(enabledConfig(), store, time.Now())

	_, err := g.CheckFrequency(context.Background(), "owner-1")
	if err == nil {
		t.Fatal("CheckFrequency() error = nil, want store error propagated")
	}
}

func TestCheckCandidate(t *testing.T) {
	current := map[string]domain.ParamValue{
		domain.ParamWindowSize:           domain.IntValue(5),
		domain.ParamTakeProfitPct:        domain.FloatValue(2.0),
		domain.ParamStopLossPct:          domain.FloatValue(1.0),
		domain.ParamPriceChangeThreshold: domain.FloatValue(1.0),
	}

	tests := []struct {
		name        string
		cfg         Config
		candidate   domain.Candidate
		wantAllowed bool
	}{
		{
			name: "disabled guard allows anything",
			cfg:  Config{Enabled: false},
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamTakeProfitPct: 0.5,
				domain.ParamStopLossPct:   5.0,
			}),
			wantAllowed: true,
		},
		{
			name:        "empty candidate denied",
			cfg:         enabledConfig(),
			candidate:   domain.Candidate{},
			wantAllowed: false,
		},
		{
			name: "take profit below stop loss denied",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamTakeProfitPct: 1.0,
				domain.ParamStopLossPct:   1.2,
			}),
			wantAllowed: false,
		},
		{
			name: "excessive delta denied",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamWindowSize: 20, // 5 -> 20 is a 300% move
			}),
			wantAllowed: false,
		},
		{
			name: "delta at the boundary allowed",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamWindowSize: 7, // 5 -> 7 is a 40% move
			}),
			wantAllowed: true,
		},
		{
			name: "parameter missing from baseline skipped",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				"brandNewKnob": 9999.0,
			}),
			wantAllowed: true,
		},
		{
			name: "non-numeric value skipped by delta rule",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamWindowSize: "not-a-number",
			}),
			wantAllowed: true,
		},
		{
			name: "safe candidate allowed",
			cfg:  enabledConfig(),
			candidate: domain.NewCandidate(map[string]any{
				domain.ParamWindowSize:           6,
				domain.ParamTakeProfitPct:        2.5,
				domain.ParamStopLossPct:          1.2,
				domain.ParamPriceChangeThreshold: 1.4,
			}),
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(tt.cfg, &fakeRunStore{}, time.Now())
			decision := g.CheckCandidate("owner-1", current, tt.candidate)
			if decision.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason: %s)", decision.Allowed, tt.wantAllowed, decision.Reason)
			}
		})
	}
}

func TestCheckCandidate_ZeroBaselineSkipped(t *testing.T) {
	current := map[string]domain.ParamValue{
		domain.ParamPriceChangeThreshold: domain.FloatValue(0),
	}
	candidate := domain.NewCandidate(map[string]any{
		domain.ParamPriceChangeThreshold: 50.0,
	})

	g := newTestGuard(enabledConfig(), &fakeRunStore{}, time.Now())
	decision := g.CheckCandidate("owner-1", current, candidate)
	if !decision.Allowed {
		t.Errorf("Allowed = false (%s), want zero baseline skipped", decision.Reason)
	}
}
