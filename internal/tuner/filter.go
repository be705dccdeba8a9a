package tuner

import (
	"github.com/rs/zerolog"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/guard"
	"strategy-tuner/internal/observability"
)

// CandidateFilter drops unsafe candidates before evaluation.
type CandidateFilter interface {
	Filter(ownerID string, current map[string]domain.ParamValue, candidates []domain.Candidate) []domain.Candidate
}

// GuardFilter applies the guard's per-candidate safety check. Dropped
// candidates are logged with the denial reason; order of survivors is
// preserved.
type GuardFilter struct {
	guard *guard.Guard
	log   zerolog.Logger
}

var _ CandidateFilter = (*GuardFilter)(nil)

// NewGuardFilter creates a filter backed by the given guard.
func NewGuardFilter(g *guard.Guard, log zerolog.Logger) *GuardFilter {
	return &GuardFilter{guard: g, log: log}
}

// Filter returns the candidates the guard allows.
func (f *GuardFilter) Filter(ownerID string, current map[string]domain.ParamValue, candidates []domain.Candidate) []domain.Candidate {
	kept := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		decision := f.guard.CheckCandidate(ownerID, current, c)
		if !decision.Allowed {
			observability.RecordGuardDenial("candidate")
			f.log.Debug().
				Str("owner_id", ownerID).
				Str("reason", decision.Reason).
				Msg("candidate rejected by guard")
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
