// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on a dedicated registry so tests can build
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	CacheRequests    *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	RecordsSkipped   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	WSConnections    prometheus.Gauge
	ReconciledGames  *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridiron_cache_requests_total",
			Help: "cache lookups by namespace and result",
		}, []string{"namespace", "result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridiron_upstream_requests_total",
			Help: "calls to odds sources by outcome",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridiron_upstream_duration_seconds",
			Help:    "latency of odds source calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridiron_records_skipped_total",
			Help: "malformed records dropped during normalization",
		}, []string{"reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridiron_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridiron_ws_connections",
			Help: "open websocket connections",
		}),
		ReconciledGames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridiron_reconciled_games_total",
			Help: "scraped games matched across sources, and bookmaker quotes dropped as duplicates",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.CacheRequests,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.RecordsSkipped,
		m.HTTPRequests,
		m.WSConnections,
		m.ReconciledGames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheResult counts a cache hit or miss. Nil receivers are no-ops so
// components can run without metrics.
func (m *Metrics) CacheResult(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(namespace, result).Inc()
}

// Upstream records one source call
func (m *Metrics) Upstream(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(source, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Skipped counts dropped records
func (m *Metrics) Skipped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsSkipped.WithLabelValues(reason).Add(float64(n))
}

// HTTPRequest counts a served request
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// WSConnected adjusts the open websocket gauge by delta
func (m *Metrics) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.WSConnections.Add(float64(delta))
}

// Reconciled counts the matches and duplicate quotes of one reconciliation
func (m *Metrics) Reconciled(matched, conflicts int) {
	if m == nil {
		return
	}
	m.ReconciledGames.WithLabelValues("matched").Add(float64(matched))
	m.ReconciledGames.WithLabelValues("conflict").Add(float64(conflicts))
}
