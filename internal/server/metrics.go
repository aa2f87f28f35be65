package server

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/shakify/pkg/observability"
)

// Metrics holds the Prometheus collectors for the API and the analyses it
// runs. It implements the observability hook interfaces.
type Metrics struct {
	// HTTP API
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Analyses
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	exportsTotal     *prometheus.CounterVec
	exportBytes      *prometheus.HistogramVec
	exportDuration   prometheus.Histogram

	// Result cache
	cacheEventsTotal *prometheus.CounterVec
	cacheBytes       prometheus.Histogram

	// Registry and tarball requests
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	upstreamErrorsTotal   *prometheus.CounterVec
}

var (
	_ observability.AnalysisHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

var sizeBuckets = prometheus.ExponentialBuckets(256, 4, 10)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shakify_http_request_duration_seconds",
				Help:    "HTTP API request latency in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),
		analysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_analyses_total",
				Help: "Total number of package analyses",
			},
			[]string{"outcome", "cached"},
		),
		analysisDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shakify_analysis_duration_seconds",
				Help:    "Package analysis latency in seconds",
				Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"cached"},
		),
		exportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_exports_measured_total",
				Help: "Total number of exports bundled",
			},
			[]string{"outcome"},
		),
		exportBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shakify_export_bytes",
				Help:    "Bundle size of measured exports",
				Buckets: sizeBuckets,
			},
			[]string{"encoding"},
		),
		exportDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shakify_export_bundle_duration_seconds",
				Help:    "Time to bundle and measure one export",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_cache_events_total",
				Help: "Result cache lookups and writes",
			},
			[]string{"backend", "event"},
		),
		cacheBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shakify_cache_document_bytes",
				Help:    "Size of the persisted result document",
				Buckets: sizeBuckets,
			},
		),
		upstreamRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_upstream_requests_total",
				Help: "Registry and tarball requests by host and status class",
			},
			[]string{"method", "host", "status"},
		),
		upstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shakify_upstream_request_duration_seconds",
				Help:    "Registry and tarball request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
		upstreamErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shakify_upstream_errors_total",
				Help: "Registry and tarball requests that failed without a response",
			},
			[]string{"host"},
		),
	}
}

// Register installs m as the process-wide observability hooks.
func (m *Metrics) Register() {
	observability.SetAnalysisHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnAnalyzeStart(context.Context, string) {}

func (m *Metrics) OnAnalyzeComplete(_ context.Context, _, _ string, cached bool, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c := strconv.FormatBool(cached)
	m.analysesTotal.WithLabelValues(outcome, c).Inc()
	if err == nil {
		m.analysisDuration.WithLabelValues(c).Observe(d.Seconds())
	}
}

func (m *Metrics) OnExportMeasured(_ context.Context, _, _ string, size, gzipped int, d time.Duration, err error) {
	m.exportDuration.Observe(d.Seconds())
	if err != nil {
		m.exportsTotal.WithLabelValues("error").Inc()
		return
	}
	m.exportsTotal.WithLabelValues("ok").Inc()
	m.exportBytes.WithLabelValues("raw").Observe(float64(size))
	m.exportBytes.WithLabelValues("gzip").Observe(float64(gzipped))
}

func (m *Metrics) OnCacheHit(_ context.Context, backend string) {
	m.cacheEventsTotal.WithLabelValues(backend, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, backend string) {
	m.cacheEventsTotal.WithLabelValues(backend, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, backend string, size int) {
	m.cacheEventsTotal.WithLabelValues(backend, "set").Inc()
	m.cacheBytes.Observe(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	m.upstreamRequestsTotal.WithLabelValues(method, host, statusClass(status)).Inc()
	m.upstreamDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.upstreamErrorsTotal.WithLabelValues(host).Inc()
}

// statusClass buckets an HTTP status into 2xx, 3xx, 4xx or 5xx.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}
