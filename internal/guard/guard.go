// Package guard implements the safety gate for tuning cycles: a frequency
// check that rate-limits runs per owner, and a candidate check that vetoes
// unsafe parameter sets before they are evaluated.
package guard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// historyLookback bounds how many recorded runs the frequency check reads.
const historyLookback = 50

// Config controls guard behaviour. All values are externally supplied.
type Config struct {
	// Enabled turns both checks on. When false every check allows.
	Enabled bool

	// MinIntervalHours is the minimum time between tuning runs for one
	// (owner, strategy kind).
	MinIntervalHours float64

	// RequireTPAboveSL enforces takeProfitPct >= stopLossPct on candidates
	// that carry both fields.
	RequireTPAboveSL bool

	// MaxDeltaPct caps the relative change of any numeric candidate field
	// against a non-zero baseline: |new-old| must not exceed
	// |old| * MaxDeltaPct. 0.5 allows moves of up to 50%. Zero disables the
	// delta rule.
	MaxDeltaPct float64
}

// Guard is stateless: every check reads what it needs and decides. Safe for
// concurrent use across owners and cycles.
type Guard struct {
	cfg          Config
	strategyKind string
	runs         storage.TuningRunStore
	now          func() time.Time
}

// New creates a Guard reading run history from the given store.
func New(cfg Config, strategyKind string, runs storage.TuningRunStore) *Guard {
	return &Guard{
		cfg:          cfg,
		strategyKind: strategyKind,
		runs:         runs,
		now:          time.Now,
	}
}

// CheckFrequency decides whether a new tuning run may start for the owner.
// Business denials come back as a decision; only infrastructure failures
// (the history lookup itself) are returned as errors.
func (g *Guard) CheckFrequency(ctx context.Context, ownerID string) (domain.GuardDecision, error) {
	if !g.cfg.Enabled {
		return domain.Allow(), nil
	}

	recent, err := g.runs.FindRecent(ctx, ownerID, g.strategyKind, historyLookback)
	if err != nil {
		return domain.GuardDecision{}, fmt.Errorf("load recent tuning runs: %w", err)
	}
	if len(recent) == 0 {
		return domain.Allow(), nil
	}

	elapsed := g.now().Sub(time.UnixMilli(recent[0].CreatedAtMs))
	required := time.Duration(g.cfg.MinIntervalHours * float64(time.Hour))
	if elapsed < required {
		return domain.Deny(fmt.Sprintf(
			"last tuning run was %.1fh ago, minimum interval is %.1fh",
			elapsed.Hours(), g.cfg.MinIntervalHours,
		)), nil
	}

	return domain.Allow(), nil
}

// CheckCandidate decides whether one proposed candidate is safe against the
// currently active parameters. Fields that are non-numeric, missing from the
// baseline, or have a zero baseline value are skipped, never denied.
func (g *Guard) CheckCandidate(ownerID string, current map[string]domain.ParamValue, candidate domain.Candidate) domain.GuardDecision {
	if !g.cfg.Enabled {
		return domain.Allow()
	}

	if len(candidate.Params) == 0 {
		return domain.Deny("candidate has no parameters")
	}

	if g.cfg.RequireTPAboveSL {
		tp, tpOK := candidate.Float(domain.ParamTakeProfitPct)
		sl, slOK := candidate.Float(domain.ParamStopLossPct)
		if tpOK && slOK && tp < sl {
			return domain.Deny(fmt.Sprintf(
				"take profit %.4f%% is below stop loss %.4f%%", tp, sl,
			))
		}
	}

	if g.cfg.MaxDeltaPct > 0 && len(current) > 0 {
		// Deterministic field order so the first offending field named in
		// the denial is stable across runs.
		names := make([]string, 0, len(candidate.Params))
		for name := range candidate.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			next := candidate.Params[name]
			if !next.Numeric {
				continue
			}
			old, ok := current[name]
			if !ok || !old.Numeric || old.Num == 0 {
				continue
			}
			if math.Abs(next.Num-old.Num) > math.Abs(old.Num)*g.cfg.MaxDeltaPct {
				return domain.Deny(fmt.Sprintf(
					"parameter %s changes too much: %v -> %v exceeds %.0f%% of current value",
					name, old.Num, next.Num, g.cfg.MaxDeltaPct*100,
				))
			}
		}
	}

	return domain.Allow()
}
