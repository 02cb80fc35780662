package testutils

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dalfonso89/currency-rate-cache/internal/config"
	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

// MockLogger creates a logger that discards output
func MockLogger() *logger.Logger {
	return logger.NewWithOutput("debug", io.Discard)
}

// MockConfig creates a mock configuration for testing
func MockConfig() *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "debug",

		ExchangeRateProviders: []config.ExchangeRateProvider{
			{
				Name:     "test-provider",
				BaseURL:  "https://api.test.com/latest",
				Enabled:  true,
				Priority: 1,
				Timeout:  5 * time.Second,
			},
		},
		MaxConcurrentRequests: 4,

		Cache: config.CacheConfig{
			TTL:            5 * time.Minute,
			RetryAttempts:  1,
			RetryDelay:     0,
			LoggingEnabled: true,
			ReferenceBase:  "USD",
			Preload:        []string{"USD"},
		},

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}

// MockRatesResponse creates a mock rates response for testing
func MockRatesResponse(base string, rates map[string]float64) models.RatesResponse {
	return models.RatesResponse{
		Base:       base,
		SourceDate: "2026-10-18",
		Rates:      rates,
		Provider:   "mock-provider",
	}
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (clock *FakeClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.now
}

func (clock *FakeClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	clock.now = clock.now.Add(duration)
	clock.mutex.Unlock()
}

// StubFetcher returns scripted responses per base currency and counts calls.
// It satisfies ratecache.Fetcher.
type StubFetcher struct {
	mutex     sync.Mutex
	responses map[string]models.RatesResponse
	failures  map[string]error
	calls     map[string]int

	// Gate, when set, blocks every fetch until it is closed or ctx is done
	Gate chan struct{}
}

func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		responses: make(map[string]models.RatesResponse),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

// SetRates makes base succeed with rates from now on
func (fetcher *StubFetcher) SetRates(base string, rates map[string]float64) {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	fetcher.responses[base] = MockRatesResponse(base, rates)
	delete(fetcher.failures, base)
}

// SetResponse makes base succeed with response from now on
func (fetcher *StubFetcher) SetResponse(base string, response models.RatesResponse) {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	fetcher.responses[base] = response
	delete(fetcher.failures, base)
}

// Fail makes base fail with err from now on
func (fetcher *StubFetcher) Fail(base string, err error) {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	fetcher.failures[base] = err
}

func (fetcher *StubFetcher) Calls(base string) int {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	return fetcher.calls[base]
}

func (fetcher *StubFetcher) FetchRates(ctx context.Context, base string) (models.RatesResponse, error) {
	fetcher.mutex.Lock()
	fetcher.calls[base]++
	gate := fetcher.Gate
	fetcher.mutex.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.RatesResponse{}, models.NewNetworkError("request cancelled", ctx.Err())
		}
	}

	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()

	if err, failing := fetcher.failures[base]; failing {
		return models.RatesResponse{}, err
	}
	response, found := fetcher.responses[base]
	if !found {
		return models.RatesResponse{}, models.NewNetworkError("provider returned status 404", nil)
	}
	response.Rates = copyRates(response.Rates)
	return response, nil
}

func copyRates(rates map[string]float64) map[string]float64 {
	copied := make(map[string]float64, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	return copied
}
