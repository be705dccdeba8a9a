// Package evaluate runs candidate parameter sets through backtests in
// parallel and ranks the outcomes.
package evaluate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/scoring"
)

// BacktestPort runs one candidate through a backtest. Implementations load
// settings and candles, merge the candidate's parameters and simulate.
type BacktestPort interface {
	Backtest(ctx context.Context, req domain.TuningRequest, candidate domain.Candidate) (*domain.BacktestMetrics, error)
}

// defaultWorkers bounds parallelism when the caller does not configure it.
const defaultWorkers = 4

// Evaluator fans candidates out over a bounded worker pool. One candidate
// failing, erroring or panicking never takes the batch down with it.
type Evaluator struct {
	port    BacktestPort
	workers int
	log     zerolog.Logger
}

// New creates an Evaluator. workers <= 0 falls back to a small default.
func New(port BacktestPort, workers int, log zerolog.Logger) *Evaluator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Evaluator{port: port, workers: workers, log: log}
}

// EvaluateBatch backtests and scores the first max(1, min(maxCandidates,
// len(candidates))) candidates, so a non-positive cap still evaluates exactly
// one. The returned slice holds one evaluation per evaluated candidate,
// sorted by score descending with errored evaluations last. Equal scores keep
// their generation order, so a fixed seed yields a fully reproducible
// ranking.
func (e *Evaluator) EvaluateBatch(ctx context.Context, req domain.TuningRequest, candidates []domain.Candidate, maxCandidates int) []domain.CandidateEvaluation {
	if len(candidates) == 0 {
		return nil
	}

	n := len(candidates)
	if maxCandidates < n {
		n = maxCandidates
	}
	if n < 1 {
		n = 1
	}

	evals := make([]domain.CandidateEvaluation, n)

	workers := e.workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				evals[idx] = e.evaluateOne(ctx, req, candidates[idx])
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if (a.Err == "") != (b.Err == "") {
			return a.Err == ""
		}
		if a.Score == nil || b.Score == nil {
			return a.Score != nil
		}
		return *a.Score > *b.Score
	})

	return evals
}

// evaluateOne backtests a single candidate. Panics in the port are contained
// here and reported as an errored evaluation.
func (e *Evaluator) evaluateOne(ctx context.Context, req domain.TuningRequest, candidate domain.Candidate) (ev domain.CandidateEvaluation) {
	ev.Candidate = candidate

	defer func() {
		if r := recover(); r != nil {
			ev.Metrics = nil
			ev.Score = nil
			ev.Err = fmt.Sprintf("backtest panic: %v", r)
			e.log.Error().Str("owner_id", req.OwnerID).Interface("panic", r).Msg("candidate backtest panicked")
		}
	}()

	metrics, err := e.port.Backtest(ctx, req, candidate)
	if err != nil {
		ev.Err = fmt.Sprintf("%T: %v", err, err)
		e.log.Warn().Str("owner_id", req.OwnerID).Err(err).Msg("candidate backtest failed")
		return ev
	}

	score := scoring.Score(metrics)
	ev.Metrics = metrics
	ev.Score = &score
	return ev
}
