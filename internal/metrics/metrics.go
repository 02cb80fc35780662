package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

const namespace = "currency_rate_cache"

// StatsSource is the part of the rate cache the collector reads at scrape time
type StatsSource interface {
	Stats() models.Stats
}

// NewRegistry creates a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler exposes registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// CacheCollector reports rate cache counters. Values are read from the cache
// on every scrape so they always match the stats endpoint.
type CacheCollector struct {
	source StatsSource

	entries  *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	apiCalls *prometheus.Desc
	hitRate  *prometheus.Desc
}

// NewCacheCollector creates a collector over source
func NewCacheCollector(source StatsSource) *CacheCollector {
	return &CacheCollector{
		source: source,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Number of cached rate tables by state",
			[]string{"state"}, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Rate lookups answered from a fresh cache entry",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Rate lookups that required a refresh",
			nil, nil,
		),
		apiCalls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "upstream", "calls_total"),
			"Upstream fetch attempts including retries",
			nil, nil,
		),
		hitRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hit_ratio"),
			"Fraction of lookups served from cache",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (collector *CacheCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- collector.entries
	descs <- collector.hits
	descs <- collector.misses
	descs <- collector.apiCalls
	descs <- collector.hitRate
}

// Collect implements prometheus.Collector
func (collector *CacheCollector) Collect(metrics chan<- prometheus.Metric) {
	stats := collector.source.Stats()

	metrics <- prometheus.MustNewConstMetric(collector.entries, prometheus.GaugeValue, float64(stats.ValidEntries), "valid")
	metrics <- prometheus.MustNewConstMetric(collector.entries, prometheus.GaugeValue, float64(stats.ExpiredEntries), "expired")
	metrics <- prometheus.MustNewConstMetric(collector.hits, prometheus.CounterValue, float64(stats.CacheHitCount))
	metrics <- prometheus.MustNewConstMetric(collector.misses, prometheus.CounterValue, float64(stats.CacheMissCount))
	metrics <- prometheus.MustNewConstMetric(collector.apiCalls, prometheus.CounterValue, float64(stats.APICallCount))
	metrics <- prometheus.MustNewConstMetric(collector.hitRate, prometheus.GaugeValue, stats.HitRate)
}

// HTTPMetrics holds the request metrics recorded by the router middleware
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics on registry
func NewHTTPMetrics(registry prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(registry)

	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
			},
			[]string{"route", "method"},
		),
	}
}

// RecordRequest records one served request
func (m *HTTPMetrics) RecordRequest(route, method, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}
