// Package tuner orchestrates one parameter-tuning cycle: guard checks,
// parameter-space loading, candidate generation and safety filtering.
// Evaluation and promotion of the surviving candidates happen downstream.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/guard"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/paramspace"
	"strategy-tuner/internal/storage"
)

// Config holds the static inputs of a tuning cycle.
type Config struct {
	StrategyKind string
	Exchange     string
	Network      string

	// CandidateCount is how many candidates one cycle generates.
	CandidateCount int

	// DefaultSeed drives generation when the request carries no seed.
	DefaultSeed int64
}

// AutoTuner runs tuning cycles. Safe for concurrent use across owners; two
// concurrent cycles for the same owner are not mutually excluded, the
// frequency guard only sees runs already recorded.
type AutoTuner struct {
	cfg       Config
	guard     *guard.Guard
	space     *paramspace.Loader
	settings  storage.SettingsStore
	generator CandidateGenerator
	filter    CandidateFilter
	log       zerolog.Logger
}

// New creates an AutoTuner from its collaborators.
func New(cfg Config, g *guard.Guard, space *paramspace.Loader, settings storage.SettingsStore, generator CandidateGenerator, filter CandidateFilter, log zerolog.Logger) *AutoTuner {
	return &AutoTuner{
		cfg:       cfg,
		guard:     g,
		space:     space,
		settings:  settings,
		generator: generator,
		filter:    filter,
		log:       log,
	}
}

// Tune executes one cycle for the requesting owner. It always returns a
// non-nil result describing how the cycle terminated; a panic anywhere inside
// is contained and reported as a not-applied result.
func (t *AutoTuner) Tune(ctx context.Context, req domain.TuningRequest) (result *domain.TuningResult) {
	result = &domain.TuningResult{}

	defer func() {
		if r := recover(); r != nil {
			result = &domain.TuningResult{
				Reason: fmt.Sprintf("tuning cycle panicked: %v", r),
			}
			t.log.Error().Str("owner_id", req.OwnerID).Interface("panic", r).Msg("tuning cycle panicked")
		}
	}()

	if strings.TrimSpace(req.OwnerID) == "" {
		result.Reason = "owner id is required"
		return result
	}

	log := t.log.With().Str("owner_id", req.OwnerID).Str("strategy_kind", t.cfg.StrategyKind).Logger()

	decision, err := t.guard.CheckFrequency(ctx, req.OwnerID)
	if err != nil {
		result.Reason = fmt.Sprintf("frequency guard failed: %v", err)
		log.Error().Err(err).Msg("frequency guard failed")
		return result
	}
	if !decision.Allowed {
		observability.RecordGuardDenial("frequency")
		result.Reason = "frequency guard: " + decision.Reason
		log.Info().Str("reason", decision.Reason).Msg("tuning denied by frequency guard")
		return result
	}

	space, err := t.space.LoadEnabledSpace(ctx)
	if err != nil {
		result.Reason = fmt.Sprintf("load parameter space: %v", err)
		log.Error().Err(err).Msg("parameter space load failed")
		return result
	}
	if len(space) == 0 {
		result.Reason = fmt.Sprintf("parameter space for %s is empty, nothing to tune", t.cfg.StrategyKind)
		log.Info().Msg("parameter space is empty")
		return result
	}

	strategy, risk, err := t.settings.FindLatest(ctx, req.OwnerID, t.cfg.StrategyKind)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			result.Reason = fmt.Sprintf("owner %s has no %s settings, configure the strategy first", req.OwnerID, t.cfg.StrategyKind)
			log.Info().Msg("owner has no settings")
			return result
		}
		result.Reason = fmt.Sprintf("load settings: %v", err)
		log.Error().Err(err).Msg("settings load failed")
		return result
	}

	result.OldParams = CurrentParams(strategy, risk)

	seed := t.cfg.DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	candidates := t.generator.Generate(space, t.cfg.CandidateCount, seed)
	result.Generated = len(candidates)
	if len(candidates) == 0 {
		result.Reason = "generator produced no candidates"
		log.Info().Msg("no candidates generated")
		return result
	}

	kept := t.filter.Filter(req.OwnerID, result.OldParams, candidates)
	result.Filtered = len(candidates) - len(kept)

	if len(kept) == 0 {
		result.Reason = "all candidates rejected by guard"
	} else {
		result.Reason = fmt.Sprintf("generated %d candidates, %d passed the guard", len(candidates), len(kept))
	}

	log.Info().
		Int("generated", result.Generated).
		Int("filtered", result.Filtered).
		Int64("seed", seed).
		Msg("tuning cycle finished")

	return result
}
