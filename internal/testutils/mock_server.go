package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalfonso89/currency-rate-cache/internal/config"
)

// DefaultMockRates is served for every base unless overridden
var DefaultMockRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110.0,
	"CAD": 1.25,
	"AUD": 1.35,
}

// MockExchangeRateServer imitates the upstream rate APIs. The base currency
// is read from the last path segment (erapi style), from= (frankfurter) or
// base= (everything else).
type MockExchangeRateServer struct {
	server *httptest.Server

	mutex      sync.RWMutex
	rates      map[string]map[string]float64
	statusCode int
	rawBody    string

	requestCount atomic.Int64
}

// NewMockExchangeRateServer creates a new mock exchange rate server
func NewMockExchangeRateServer() *MockExchangeRateServer {
	mock := &MockExchangeRateServer{
		rates:      make(map[string]map[string]float64),
		statusCode: http.StatusOK,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockExchangeRateServer) handler(w http.ResponseWriter, r *http.Request) {
	m.requestCount.Add(1)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mutex.RLock()
	statusCode := m.statusCode
	rawBody := m.rawBody
	m.mutex.RUnlock()

	if statusCode != http.StatusOK {
		http.Error(w, http.StatusText(statusCode), statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if rawBody != "" {
		w.Write([]byte(rawBody))
		return
	}

	query := r.URL.Query()
	baseCurrency := query.Get("base")
	if baseCurrency == "" {
		baseCurrency = query.Get("from")
	}
	if baseCurrency == "" {
		segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		baseCurrency = segments[len(segments)-1]
	}
	if baseCurrency == "" || baseCurrency == "latest" || baseCurrency == "latest.json" {
		baseCurrency = "USD"
	}

	// erapi v6 shape
	json.NewEncoder(w).Encode(map[string]interface{}{
		"result":                "success",
		"base_code":             baseCurrency,
		"time_last_update_unix": time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC).Unix(),
		"time_last_update_utc":  "Sun, 18 Oct 2026 00:00:01 +0000",
		"rates":                 m.ratesFor(baseCurrency),
	})
}

func (m *MockExchangeRateServer) ratesFor(baseCurrency string) map[string]float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if rates, found := m.rates[baseCurrency]; found {
		return rates
	}
	return DefaultMockRates
}

// URL returns the mock server URL
func (m *MockExchangeRateServer) URL() string {
	return m.server.URL
}

// Close closes the mock server
func (m *MockExchangeRateServer) Close() {
	m.server.Close()
}

// SetRates overrides the table served for baseCurrency
func (m *MockExchangeRateServer) SetRates(baseCurrency string, rates map[string]float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rates[baseCurrency] = rates
}

// SetStatus makes every request answer with statusCode
func (m *MockExchangeRateServer) SetStatus(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.statusCode = statusCode
}

// SetRawBody makes every successful request answer with body verbatim
func (m *MockExchangeRateServer) SetRawBody(body string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rawBody = body
}

func (m *MockExchangeRateServer) RequestCount() int64 {
	return m.requestCount.Load()
}

// MockConfigWithServer returns a test configuration pointing erapi at the mock server
func MockConfigWithServer(exchangeRateServerURL string) *config.Config {
	cfg := MockConfig()
	cfg.Port = "0"
	cfg.LogLevel = "error"
	cfg.RateLimitBurst = 1000
	cfg.RateLimitRequests = 1000
	cfg.ExchangeRateProviders = []config.ExchangeRateProvider{
		{
			Name:     "erapi",
			BaseURL:  exchangeRateServerURL,
			Enabled:  true,
			Priority: 1,
			Timeout:  5 * time.Second,
		},
	}
	return cfg
}
