// Package metrics exposes Prometheus metrics for inbound requests, DHIS2
// page fetches and pipeline runs.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
)

const namespace = "dhis2_fhir"

// Metrics owns a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	entries       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dhis2_fetches_total",
			Help:      "DHIS2 page requests by collection and outcome.",
		}, []string{"collection", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dhis2_fetch_duration_seconds",
			Help:      "DHIS2 page request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by resource type and outcome.",
		}, []string{"resource_type", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"resource_type"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_entries_total",
			Help:      "Resources emitted into bundles.",
		}, []string{"resource_type"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Source records left out because they could not be converted.",
		}, []string{"resource_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.fetches, m.fetchDuration,
		m.runs, m.runDuration,
		m.entries, m.skipped,
	)
	return m
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch implements dhis2.FetchObserver.
func (m *Metrics) ObserveFetch(collection string, elapsed time.Duration, err error) {
	m.fetches.WithLabelValues(collection, fetchOutcome(err)).Inc()
	m.fetchDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

// ObserveRun implements pipeline.Recorder.
func (m *Metrics) ObserveRun(resourceType string, elapsed time.Duration, entries int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(resourceType, outcome).Inc()
	m.runDuration.WithLabelValues(resourceType).Observe(elapsed.Seconds())
	m.entries.WithLabelValues(resourceType).Add(float64(entries))
}

// RecordSkipped implements pipeline.Recorder.
func (m *Metrics) RecordSkipped(resourceType string) {
	m.skipped.WithLabelValues(resourceType).Inc()
}

// Middleware records every request under its route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func fetchOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *dhis2.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return "http_" + strconv.Itoa(fe.StatusCode)
	}
	return "error"
}
