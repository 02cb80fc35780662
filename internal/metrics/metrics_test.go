package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

type fixedStats struct {
	stats models.Stats
}

func (f fixedStats) Stats() models.Stats {
	return f.stats
}

func TestCacheCollector_Collect(t *testing.T) {
	collector := NewCacheCollector(fixedStats{stats: models.Stats{
		TotalEntries:   3,
		ValidEntries:   2,
		ExpiredEntries: 1,
		APICallCount:   4,
		CacheHitCount:  6,
		CacheMissCount: 2,
		HitRate:        0.75,
	}})

	expected := `
# HELP currency_rate_cache_cache_hits_total Rate lookups answered from a fresh cache entry
# TYPE currency_rate_cache_cache_hits_total counter
currency_rate_cache_cache_hits_total 6
# HELP currency_rate_cache_cache_entries Number of cached rate tables by state
# TYPE currency_rate_cache_cache_entries gauge
currency_rate_cache_cache_entries{state="expired"} 1
currency_rate_cache_cache_entries{state="valid"} 2
# HELP currency_rate_cache_upstream_calls_total Upstream fetch attempts including retries
# TYPE currency_rate_cache_upstream_calls_total counter
currency_rate_cache_upstream_calls_total 4
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"currency_rate_cache_cache_hits_total",
		"currency_rate_cache_cache_entries",
		"currency_rate_cache_upstream_calls_total",
	)
	require.NoError(t, err)

	assert.Equal(t, 6, testutil.CollectAndCount(collector))
}

func TestHTTPMetrics_RecordRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	httpMetrics := NewHTTPMetrics(registry)

	httpMetrics.RecordRequest("/api/v1/rates", "GET", "200", 0.01)
	httpMetrics.RecordRequest("/api/v1/rates", "GET", "200", 0.02)
	httpMetrics.RecordRequest("/api/v1/rates", "GET", "502", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(httpMetrics.RequestsTotal.WithLabelValues("/api/v1/rates", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpMetrics.RequestsTotal.WithLabelValues("/api/v1/rates", "GET", "502")))
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(NewCacheCollector(fixedStats{stats: models.Stats{CacheHitCount: 9}}))

	recorder := httptest.NewRecorder()
	Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "currency_rate_cache_cache_hits_total 9")
	assert.Contains(t, body, "go_goroutines")
}
