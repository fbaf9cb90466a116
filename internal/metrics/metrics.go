// Package metrics provides Prometheus metrics for the next-bus poller.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes used as the "outcome" label of FetchTotal.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics for the application.
// Every recording method is safe to call on a nil *Metrics.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Poll cycle metrics
	FetchTotal          *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	ParseFailuresTotal  prometheus.Counter
	CarriedForwardTotal prometheus.Counter
	PredictionsCurrent  prometheus.Gauge
	LastUpdateTimestamp prometheus.Gauge
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics that report registration failures to logger.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nextbus_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	fetchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbus_fetch_total",
			Help: "Upstream departure fetches by outcome",
		},
		[]string{"outcome"},
	)

	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nextbus_fetch_duration_seconds",
		Help:    "Upstream departure fetch latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	parseFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nextbus_parse_failures_total",
		Help: "Upstream records or payloads that could not be decoded",
	})

	carriedForwardTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nextbus_carried_forward_total",
		Help: "Predictions retained from a previous cycle because the upstream omitted them",
	})

	predictionsCurrent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextbus_predictions",
		Help: "Number of upcoming departures currently exposed",
	})

	lastUpdateTimestamp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextbus_last_update_timestamp_seconds",
		Help: "Unix time of the last completed poll cycle",
	})

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "metrics"))

	register(registry, logger,
		httpRequestsTotal,
		httpRequestDuration,
		fetchTotal,
		fetchDuration,
		parseFailuresTotal,
		carriedForwardTotal,
		predictionsCurrent,
		lastUpdateTimestamp,
	)

	return &Metrics{
		Registry:            registry,
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		FetchTotal:          fetchTotal,
		FetchDuration:       fetchDuration,
		ParseFailuresTotal:  parseFailuresTotal,
		CarriedForwardTotal: carriedForwardTotal,
		PredictionsCurrent:  predictionsCurrent,
		LastUpdateTimestamp: lastUpdateTimestamp,
	}
}

// register adds each collector to registry and returns how many were
// accepted. A collector that fails to register is logged and left out; it
// keeps working but is not exported.
func register(registry *prometheus.Registry, logger *slog.Logger, collectors ...prometheus.Collector) int {
	registered := 0
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			logger.Error("failed to register metrics collector", slog.String("error", err.Error()))
			continue
		}
		registered++
	}
	return registered
}

// ObserveFetch records one upstream fetch attempt.
func (m *Metrics) ObserveFetch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(duration.Seconds())
}

// AddParseFailures records n skipped records or payloads.
func (m *Metrics) AddParseFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ParseFailuresTotal.Add(float64(n))
}

// AddCarriedForward records n predictions kept from the previous cycle.
func (m *Metrics) AddCarriedForward(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CarriedForwardTotal.Add(float64(n))
}

// SetCycleResult publishes the outcome of a completed poll cycle.
func (m *Metrics) SetCycleResult(predictions int, at time.Time) {
	if m == nil {
		return
	}
	m.PredictionsCurrent.Set(float64(predictions))
	m.LastUpdateTimestamp.Set(float64(at.Unix()))
}
