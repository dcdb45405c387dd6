// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/resilience"
)

const namespace = "flightscan"

// Query outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeCacheHit = "cache_hit"
	OutcomeInvalid  = "invalid_query"
	OutcomeNoData   = "no_data"
	OutcomeError    = "error"
)

// Drop stages.
const (
	StageNormalize = "normalize"
	StageValidate  = "validate"
)

// Metrics records pipeline activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	adapterCalls  *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	flights       prometheus.Histogram
	breakerState  *prometheus.GaugeVec
}

// New creates Metrics on a fresh registry that also carries the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search queries by outcome.",
		}, []string{"outcome"}),
		queryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Wall time of search queries, cache hits included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		adapterCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_calls_total",
			Help:      "Source adapter calls by source and result.",
		}, []string{"source", "result"}),
		rowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped by normalization or validation.",
		}, []string{"stage", "reason"}),
		flights: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_flights",
			Help:      "Flights per computed result set.",
			Buckets:   prometheus.LinearBuckets(0, 10, 10),
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state per source (0 closed, 1 open, 2 half-open).",
		}, []string{"source"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuery counts one finished query.
func (m *Metrics) ObserveQuery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(d.Seconds())
}

// ObserveAdapter counts one adapter call. result is "ok" or an error kind.
func (m *Metrics) ObserveAdapter(source, result string) {
	if m == nil {
		return
	}
	m.adapterCalls.WithLabelValues(source, result).Inc()
}

// AddDropped counts n rows dropped at stage for reason.
func (m *Metrics) AddDropped(stage, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsDropped.WithLabelValues(stage, reason).Add(float64(n))
}

// ObserveFlights records the size of a computed result set.
func (m *Metrics) ObserveFlights(n int) {
	if m == nil {
		return
	}
	m.flights.Observe(float64(n))
}

// SetBreakerState records the current breaker state of source.
func (m *Metrics) SetBreakerState(source string, state resilience.CircuitState) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(source).Set(float64(state))
}

// BreakerObserver returns an OnStateChange hook that logs and records
// breaker transitions.
func (m *Metrics) BreakerObserver() func(name string, from, to resilience.CircuitState) {
	return func(name string, from, to resilience.CircuitState) {
		zap.L().Warn("circuit breaker state change",
			zap.String("source", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		m.SetBreakerState(name, to)
	}
}
