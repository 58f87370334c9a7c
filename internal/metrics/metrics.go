// Package metrics holds the Prometheus collectors of the service.
//
// Collectors are created on an explicit registry so tests can build isolated
// instances; nil *Metrics is never passed around, use New(prometheus.NewRegistry())
// when nothing scrapes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streammarks"

// Cache lookup outcomes for the livestream cache.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	BookmarkUpserts   *prometheus.CounterVec // by action: creates | moves
	BookmarkConflicts prometheus.Counter
	BookmarkFailures  *prometheus.CounterVec // by kind
	Recounts          prometheus.Counter

	LivestreamCache *prometheus.CounterVec // by result: hit | miss | stale

	YouTubeRequests     *prometheus.CounterVec // by operation, status
	YouTubeBreakerState prometheus.Gauge       // 0 closed, 1 half-open, 2 open

	RedisOps        *prometheus.CounterVec
	RedisOpDuration *prometheus.HistogramVec

	AllowlistReloads  *prometheus.CounterVec // by status
	AllowlistChannels prometheus.Gauge
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves the registry in the exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New creates and registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		BookmarkUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmarks",
			Name:      "upserts_total",
			Help:      "Committed bookmark upserts by action.",
		}, []string{"action"}),
		BookmarkConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmarks",
			Name:      "conflicts_total",
			Help:      "Atomic commits rejected because a versionstamp changed concurrently.",
		}),
		BookmarkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmarks",
			Name:      "failures_total",
			Help:      "Failed bookmark requests by error kind.",
		}, []string{"kind"}),
		Recounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmarks",
			Name:      "recounts_total",
			Help:      "Completed full recounts of the bookmark counter.",
		}),

		LivestreamCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livestream_cache",
			Name:      "lookups_total",
			Help:      "Livestream cache lookups by result.",
		}, []string{"result"}),

		YouTubeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "youtube",
			Name:      "requests_total",
			Help:      "YouTube Data API calls by operation and status.",
		}, []string{"operation", "status"}),
		YouTubeBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "youtube",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),

		RedisOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis commands by name and status.",
		}, []string{"operation", "status"}),
		RedisOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis command latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		AllowlistReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allowlist",
			Name:      "reloads_total",
			Help:      "Allow-list reloads by status.",
		}, []string{"status"}),
		AllowlistChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "allowlist",
			Name:      "channels",
			Help:      "Number of channels currently on the allow-list.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.BookmarkUpserts, m.BookmarkConflicts, m.BookmarkFailures, m.Recounts,
		m.LivestreamCache,
		m.YouTubeRequests, m.YouTubeBreakerState,
		m.RedisOps, m.RedisOpDuration,
		m.AllowlistReloads, m.AllowlistChannels,
	)
	return m
}

// NewNop returns collectors registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
