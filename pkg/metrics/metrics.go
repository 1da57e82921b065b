// Package metrics defines the Prometheus collectors used by the checker
// service. StartServer exposes them for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	UnitsCheckedTotal    prometheus.Counter
	SentencesTotal       prometheus.Counter
	PrefilterSkipsTotal  prometheus.Counter
	DiagnosticsTotal     *prometheus.CounterVec
	CheckDuration        prometheus.Histogram
	RuleCompilations     *prometheus.CounterVec
	ActiveRules          prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	QueueMessagesTotal   *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		UnitsCheckedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stylecheck_units_checked_total",
				Help: "Total text units checked.",
			},
		),
		SentencesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stylecheck_sentences_total",
				Help: "Total sentences scanned.",
			},
		),
		PrefilterSkipsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stylecheck_prefilter_skips_total",
				Help: "Sentences rejected by the terminology pre-filter.",
			},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylecheck_diagnostics_total",
				Help: "Diagnostics emitted by check and severity.",
			},
			[]string{"check", "severity"},
		),
		CheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stylecheck_check_duration_seconds",
				Help:    "Time to check one text unit.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		RuleCompilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylecheck_rule_compilations_total",
				Help: "Rule set compilations by status.",
			},
			[]string{"status"},
		),
		ActiveRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stylecheck_active_rules",
				Help: "Number of terminology rules in the active rule set.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		QueueMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stylecheck_queue_messages_total",
				Help: "Queue messages handled by the worker, by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UnitsCheckedTotal,
		m.SentencesTotal,
		m.PrefilterSkipsTotal,
		m.DiagnosticsTotal,
		m.CheckDuration,
		m.RuleCompilations,
		m.ActiveRules,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.QueueMessagesTotal,
		m.CircuitBreakerState,
	)

	return m
}
