// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Tuning metrics
	TuningCyclesTotal   *prometheus.CounterVec
	CandidatesGenerated prometheus.Counter
	CandidatesFiltered  prometheus.Counter
	CandidatesEvaluated *prometheus.CounterVec
	GuardDenials        *prometheus.CounterVec

	// Backtest metrics
	BacktestDuration prometheus.Histogram
	BacktestFailures prometheus.Counter

	// Ingestion metrics
	CandlesIngested  prometheus.Counter
	IngestReconnects prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "strategy_tuner"
	}

	return &Metrics{
		TuningCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "cycles_total",
			Help:      "Total number of tuning cycles by outcome",
		}, []string{"outcome"}),
		CandidatesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "candidates_generated_total",
			Help:      "Total number of candidates generated",
		}),
		CandidatesFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "candidates_filtered_total",
			Help:      "Total number of candidates rejected by the guard",
		}),
		CandidatesEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of candidates evaluated by status",
		}, []string{"status"}),
		GuardDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "denials_total",
			Help:      "Total number of guard denials by check",
		}, []string{"check"}),

		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Single backtest execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BacktestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "failures_total",
			Help:      "Total number of backtests that returned an unusable result",
		}),

		CandlesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_ingested_total",
			Help:      "Total number of closed candles stored",
		}),
		IngestReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTuningCycle records the outcome of one tuning cycle.
func RecordTuningCycle(outcome string) {
	DefaultMetrics.TuningCyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordCandidates records the candidate counts of one cycle.
func RecordCandidates(generated, filtered int) {
	DefaultMetrics.CandidatesGenerated.Add(float64(generated))
	DefaultMetrics.CandidatesFiltered.Add(float64(filtered))
}

// RecordEvaluation records one evaluated candidate.
func RecordEvaluation(status string) {
	DefaultMetrics.CandidatesEvaluated.WithLabelValues(status).Inc()
}

// RecordGuardDenial records a denial by check name.
func RecordGuardDenial(check string) {
	DefaultMetrics.GuardDenials.WithLabelValues(check).Inc()
}

// RecordBacktest records one backtest execution.
func RecordBacktest(seconds float64, ok bool) {
	DefaultMetrics.BacktestDuration.Observe(seconds)
	if !ok {
		DefaultMetrics.BacktestFailures.Inc()
	}
}

// RecordCandlesIngested records stored candles.
func RecordCandlesIngested(n int) {
	DefaultMetrics.CandlesIngested.Add(float64(n))
}

// RecordIngestReconnect records a websocket reconnect.
func RecordIngestReconnect() {
	DefaultMetrics.IngestReconnects.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
