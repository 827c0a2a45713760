package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	driftsDetected    prometheus.Counter
	scoreComputations *prometheus.CounterVec
	categorizations   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oshieru_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_reconciliations_total",
				Help: "Balance reconciliation runs by outcome (clean, repaired, error).",
			},
			[]string{"outcome"},
		),
		driftsDetected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "oshieru_balance_drifts_total",
				Help: "Cached balances found out of step with derived balances.",
			},
		),
		scoreComputations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_score_computations_total",
				Help: "Score computations by resulting label (or no_anchor/error).",
			},
			[]string{"label"},
		),
		categorizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshieru_categorizations_total",
				Help: "Categorization operations by mode (single, batch, bulk).",
			},
			[]string{"mode"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReconciliation increments the reconciliation counter for an outcome.
func (m *Metrics) IncrReconciliation(outcome string) {
	m.reconciliations.WithLabelValues(outcome).Inc()
}

// IncrDriftDetected increments the balance drift counter.
func (m *Metrics) IncrDriftDetected() {
	m.driftsDetected.Inc()
}

// IncrScoreComputation increments the score computation counter for a label.
func (m *Metrics) IncrScoreComputation(label string) {
	m.scoreComputations.WithLabelValues(label).Inc()
}

// IncrCategorization increments the categorization counter for a mode.
func (m *Metrics) IncrCategorization(mode string) {
	m.categorizations.WithLabelValues(mode).Inc()
}

// GetEngineSnapshot returns a snapshot of engine counters suitable for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	// Prometheus counters expose cumulative values; read them back out of
	// the vectors for the labels the engine actually writes.
	reconciliations := map[string]float64{}
	for _, outcome := range []string{"clean", "repaired", "error"} {
		reconciliations[outcome] = getCounterValue(m.reconciliations, outcome)
	}

	scores := map[string]float64{}
	for _, label := range []string{
		domain.LabelExcellent, domain.LabelGood, domain.LabelCaution,
		domain.LabelDanger, "no_anchor", "error",
	} {
		scores[label] = getCounterValue(m.scoreComputations, label)
	}

	categorizations := map[string]float64{}
	for _, mode := range []string{"single", "batch", "bulk"} {
		categorizations[mode] = getCounterValue(m.categorizations, mode)
	}

	drifts := float64(0)
	dm := &dto.Metric{}
	if err := m.driftsDetected.Write(dm); err == nil && dm.Counter != nil && dm.Counter.Value != nil {
		drifts = *dm.Counter.Value
	}

	return &domain.EngineMetrics{
		Reconciliations:   reconciliations,
		DriftsDetected:    drifts,
		ScoreComputations: scores,
		Categorizations:   categorizations,
		Timestamp:         time.Now().UTC(),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
