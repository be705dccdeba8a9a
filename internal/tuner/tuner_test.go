package tuner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/guard"
	"strategy-tuner/internal/paramspace"
	"strategy-tuner/internal/storage/memory"
)

type tunerFixture struct {
	tuner    *AutoTuner
	spaces   *memory.ParamSpaceStore
	settings *memory.SettingsStore
	runs     *memory.TuningRunStore
}

func newFixture(t *testing.T, guardCfg guard.Config) *tunerFixture {
	t.Helper()

	spaces := memory.NewParamSpaceStore()
	settings := memory.NewSettingsStore()
	runs := memory.NewTuningRunStore()

	g := guard.New(guardCfg, domain.StrategyKindPriceChange, runs)
	cfg := Config{
		StrategyKind:   domain.StrategyKindPriceChange,
		Exchange:       "binance",
		Network:        "mainnet",
		CandidateCount: 10,
		DefaultSeed:    1,
	}

	return &tunerFixture{
		tuner: New(cfg, g,
			paramspace.NewLoader(spaces, domain.StrategyKindPriceChange),
			settings, RandomGenerator{}, NewGuardFilter(g, zerolog.Nop()), zerolog.Nop()),
		spaces:   spaces,
		settings: settings,
		runs:     runs,
	}
}

func (f *tunerFixture) seedSpace(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	items := []*domain.ParamSpaceItem{
		{Name: "windowSize", StrategyKind: domain.StrategyKindPriceChange, ValueType: domain.ValueTypeInt, Min: 4, Max: 6, Step: 1, Enabled: true},
		{Name: "priceChangeThreshold", StrategyKind: domain.StrategyKindPriceChange, ValueType: domain.ValueTypeFloat, Min: 0.8, Max: 1.2, Step: 0.1, Enabled: true},
	}
	for _, item := range items {
		if err := f.spaces.Insert(ctx, item); err != nil {
			t.Fatalf("seed space: %v", err)
		}
	}
}

func (f *tunerFixture) seedSettings(t *testing.T, ownerID string) {
	t.Helper()
	ctx := context.Background()
	// Get-or-create materializes defaults for the owner.
	if _, err := f.settings.GetStrategySettings(ctx, ownerID, domain.StrategyKindPriceChange, "binance", "mainnet"); err != nil {
		t.Fatalf("seed strategy settings: %v", err)
	}
	if _, err := f.settings.GetRiskSettings(ctx, ownerID, domain.StrategyKindPriceChange, "binance", "mainnet"); err != nil {
		t.Fatalf("seed risk settings: %v", err)
	}
}

func disabledGuard() guard.Config {
	return guard.Config{Enabled: false}
}

func TestTune_RequiresOwner(t *testing.T) {
	f := newFixture(t, disabledGuard())

	result := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "   "})
	if result == nil {
		t.Fatal("Tune() returned nil")
	}
	if result.Applied {
		t.Error("Applied = true on early exit")
	}
	if !strings.Contains(result.Reason, "owner id") {
		t.Errorf("Reason = %q, want owner id complaint", result.Reason)
	}
}

func TestTune_FrequencyDenied(t *testing.T) {
	f := newFixture(t, guard.Config{Enabled: true, MinIntervalHours: 24})
	f.seedSpace(t)
	f.seedSettings(t, "owner-1")

	run := &domain.TuningRun{
		RunID:        "run-1",
		OwnerID:      "owner-1",
		StrategyKind: domain.StrategyKindPriceChange,
		CreatedAtMs:  time.Now().UnixMilli(),
	}
	if err := f.runs.Insert(context.Background(), run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	result := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1"})
	if !strings.HasPrefix(result.Reason, "frequency guard:") {
		t.Errorf("Reason = %q, want frequency guard denial", result.Reason)
	}
	if result.Generated != 0 {
		t.Errorf("Generated = %d, want 0 before generation", result.Generated)
	}
}

func TestTune_EmptySpace(t *testing.T) {
	f := newFixture(t, disabledGuard())
	f.seedSettings(t, "owner-1")

	result := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1"})
	if !strings.Contains(result.Reason, "parameter space") {
		t.Errorf("Reason = %q, want empty space complaint", result.Reason)
	}
}

func TestTune_OwnerWithoutSettings(t *testing.T) {
	f := newFixture(t, disabledGuard())
	f.seedSpace(t)

	result := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-unknown"})
	if !strings.Contains(result.Reason, "configure") {
		t.Errorf("Reason = %q, want configure-first message", result.Reason)
	}
	if result.OldParams != nil {
		t.Errorf("OldParams = %v, want nil before settings load", result.OldParams)
	}
}

func TestTune_HappyPath(t *testing.T) {
	f := newFixture(t, guard.Config{Enabled: true, MinIntervalHours: 24, RequireTPAboveSL: true, MaxDeltaPct: 0.5})
	f.seedSpace(t)
	f.seedSettings(t, "owner-1")

	seed := int64(42)
	result := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1", Seed: &seed})

	if result.Applied {
		t.Error("Applied = true, promotion is out of this cycle's hands")
	}
	if result.Generated != 10 {
		t.Errorf("Generated = %d, want 10", result.Generated)
	}
	if result.Filtered < 0 || result.Filtered > result.Generated {
		t.Errorf("Filtered = %d out of range [0, %d]", result.Filtered, result.Generated)
	}
	if len(result.OldParams) == 0 {
		t.Error("OldParams empty, want current parameter snapshot")
	}
	if v, ok := result.OldParams[domain.ParamWindowSize]; !ok || v.Num != 5 {
		t.Errorf("OldParams windowSize = %+v, want default 5", v)
	}
	if result.Reason == "" {
		t.Error("Reason empty, want cycle summary")
	}
}

func TestTune_DeterministicWithSeed(t *testing.T) {
	f := newFixture(t, disabledGuard())
	f.seedSpace(t)
	f.seedSettings(t, "owner-1")

	seed := int64(7)
	first := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1", Seed: &seed})
	second := f.tuner.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1", Seed: &seed})

	if first.Generated != second.Generated || first.Filtered != second.Filtered {
		t.Errorf("identical seeds diverged: %+v vs %+v", first, second)
	}
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(space map[string]domain.ParamSpaceItem, count int, seed int64) []domain.Candidate {
	panic("generator exploded")
}

func TestTune_PanicContained(t *testing.T) {
	f := newFixture(t, disabledGuard())
	f.seedSpace(t)
	f.seedSettings(t, "owner-1")

	g := guard.New(disabledGuard(), domain.StrategyKindPriceChange, f.runs)
	broken := New(Config{
		StrategyKind:   domain.StrategyKindPriceChange,
		Exchange:       "binance",
		Network:        "mainnet",
		CandidateCount: 10,
		DefaultSeed:    1,
	}, g, paramspace.NewLoader(f.spaces, domain.StrategyKindPriceChange),
		f.settings, panickingGenerator{}, NewGuardFilter(g, zerolog.Nop()), zerolog.Nop())

	result := broken.Tune(context.Background(), domain.TuningRequest{OwnerID: "owner-1"})
	if result == nil {
		t.Fatal("Tune() returned nil after panic")
	}
	if !strings.Contains(result.Reason, "panic") {
		t.Errorf("Reason = %q, want panic report", result.Reason)
	}
	if result.Applied {
		t.Error("Applied = true after panic")
	}
}

func TestGuardFilter_DropsUnsafeCandidates(t *testing.T) {
	g := guard.New(guard.Config{Enabled: true, RequireTPAboveSL: true, MaxDeltaPct: 0.5}, domain.StrategyKindPriceChange, memory.NewTuningRunStore())
	filter := NewGuardFilter(g, zerolog.Nop())

	current := map[string]domain.ParamValue{
		domain.ParamWindowSize: domain.IntValue(5),
	}
	candidates := []domain.Candidate{
		domain.NewCandidate(map[string]any{domain.ParamWindowSize: 6}),
		domain.NewCandidate(map[string]any{domain.ParamWindowSize: 50}),
		domain.NewCandidate(map[string]any{
			domain.ParamTakeProfitPct: 1.0,
			domain.ParamStopLossPct:   2.0,
		}),
	}

	kept := filter.Filter("owner-1", current, candidates)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1", len(kept))
	}
	if v, _ := kept[0].Float(domain.ParamWindowSize); v != 6 {
		t.Errorf("surviving candidate windowSize = %v, want 6", v)
	}
}
