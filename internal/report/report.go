// Package report renders ranked candidate evaluations for humans and
// spreadsheets.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/scoring"
)

// Report wraps one ranked evaluation batch with its context.
type Report struct {
	GeneratedAt  time.Time
	OwnerID      string
	StrategyKind string
	Symbol       string
	Timeframe    string
	Evaluations  []domain.CandidateEvaluation
}

// Best returns the top scored evaluation, or nil when every candidate
// errored or scored the sentinel.
func (r *Report) Best() *domain.CandidateEvaluation {
	for i := range r.Evaluations {
		ev := &r.Evaluations[i]
		if ev.Err == "" && ev.Score != nil && *ev.Score > scoring.SentinelScore {
			return ev
		}
	}
	return nil
}

// paramNames collects the union of parameter names across the batch, sorted,
// so every row renders the same columns.
func paramNames(evals []domain.CandidateEvaluation) []string {
	seen := make(map[string]struct{})
	for _, ev := range evals {
		for name := range ev.Candidate.Params {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func paramCell(ev domain.CandidateEvaluation, name string) string {
	v, ok := ev.Candidate.Params[name]
	if !ok {
		return ""
	}
	if v.Numeric {
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v.Num), "0"), ".")
	}
	return fmt.Sprintf("%v", v.Raw)
}
