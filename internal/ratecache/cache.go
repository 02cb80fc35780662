package ratecache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

// Fetcher retrieves the full rate table for a base currency from upstream.
type Fetcher interface {
	FetchRates(ctx context.Context, baseCurrency string) (models.RatesResponse, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, baseCurrency string) (models.RatesResponse, error)

func (fetch FetcherFunc) FetchRates(ctx context.Context, baseCurrency string) (models.RatesResponse, error) {
	return fetch(ctx, baseCurrency)
}

// RateCache memoizes rate tables per base currency. Entries younger than the
// ttl are served directly; older ones are refreshed, and kept as a fallback
// when the refresh fails.
type RateCache struct {
	fetcher Fetcher

	cacheMutex sync.RWMutex
	entries    map[string]*models.CacheEntry
	options    Options

	singleFlightGroup singleflight.Group

	apiCalls    atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *RateCache {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	options.normalize()

	return &RateCache{
		fetcher: fetcher,
		entries: make(map[string]*models.CacheEntry),
		options: options,
	}
}

// Configure applies opts on top of the current configuration. Existing
// entries keep the expiry computed when they were stored.
func (rateCache *RateCache) Configure(opts ...Option) {
	rateCache.cacheMutex.Lock()
	options := rateCache.options
	for _, opt := range opts {
		opt(&options)
	}
	options.normalize()
	rateCache.options = options
	rateCache.cacheMutex.Unlock()

	rateCache.emitf(EventInfo, "configuration updated: ttl=%s retry_attempts=%d retry_delay=%s logging=%t",
		options.TTL, options.Retry.Attempts, options.Retry.Delay, options.LoggingEnabled)
}

// Options returns the configuration in force.
func (rateCache *RateCache) Options() Options {
	rateCache.cacheMutex.RLock()
	defer rateCache.cacheMutex.RUnlock()
	return rateCache.options
}

// GetRates returns a copy of the rate table for baseCurrency.
func (rateCache *RateCache) GetRates(ctx context.Context, baseCurrency string) (map[string]float64, error) {
	rateCache.cacheMutex.RLock()
	entry, exists := rateCache.entries[baseCurrency]
	now := rateCache.options.Clock.Now()
	if exists && now.Before(entry.ExpiresAt) {
		rates := copyRates(entry.Rates)
		age := now.Sub(entry.FetchedAt)
		rateCache.cacheMutex.RUnlock()

		rateCache.cacheHits.Add(1)
		rateCache.emitf(EventDebug, "serving cached rates for %s (age: %s)", baseCurrency, formatAge(age))
		return rates, nil
	}
	rateCache.cacheMutex.RUnlock()

	rateCache.cacheMisses.Add(1)
	if exists {
		rateCache.emitf(EventWarn, "cache expired for %s (age: %s)", baseCurrency, formatAge(now.Sub(entry.FetchedAt)))
	}

	// The shared refresh outlives any single caller; callers only stop waiting.
	flight := rateCache.singleFlightGroup.DoChan("rates:"+baseCurrency, func() (interface{}, error) {
		return rateCache.refresh(context.WithoutCancel(ctx), baseCurrency)
	})

	var refreshError error
	select {
	case result := <-flight:
		if result.Err == nil {
			if result.Shared {
				rateCache.emitf(EventDebug, "joined in-flight refresh for %s", baseCurrency)
			}
			return copyRates(result.Val.(*models.CacheEntry).Rates), nil
		}
		refreshError = result.Err
	case <-ctx.Done():
		refreshError = models.NewNetworkError("caller stopped waiting", ctx.Err())
	}

	rateCache.emitf(EventError, "failed to refresh rates for %s: %v", baseCurrency, refreshError)

	rateCache.cacheMutex.RLock()
	staleEntry, staleExists := rateCache.entries[baseCurrency]
	if staleExists {
		rates := copyRates(staleEntry.Rates)
		age := rateCache.options.Clock.Now().Sub(staleEntry.FetchedAt)
		rateCache.cacheMutex.RUnlock()

		rateCache.emitf(EventWarn, "returning stale rates for %s (age: %s)", baseCurrency, formatAge(age))
		return rates, nil
	}
	rateCache.cacheMutex.RUnlock()

	return nil, models.NewRatesUnavailableError(baseCurrency, refreshError)
}

// refresh fetches baseCurrency and replaces its entry on success.
func (rateCache *RateCache) refresh(ctx context.Context, baseCurrency string) (*models.CacheEntry, error) {
	// A flight that finished between our miss and this call may already
	// have stored a fresh entry. Entries are replaced, never mutated.
	rateCache.cacheMutex.RLock()
	current, exists := rateCache.entries[baseCurrency]
	options := rateCache.options
	if exists && options.Clock.Now().Before(current.ExpiresAt) {
		rateCache.cacheMutex.RUnlock()
		return current, nil
	}
	rateCache.cacheMutex.RUnlock()

	if options.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.RefreshTimeout)
		defer cancel()
	}

	rateCache.emitf(EventInfo, "fetching fresh rates for %s", baseCurrency)
	response, fetchError := rateCache.fetchWithRetry(ctx, baseCurrency, options)
	if fetchError != nil {
		return nil, fetchError
	}

	rateCache.cacheMutex.Lock()
	fetchedAt := rateCache.options.Clock.Now()
	if previous, exists := rateCache.entries[baseCurrency]; exists && previous.FetchedAt.After(fetchedAt) {
		fetchedAt = previous.FetchedAt
	}
	entry := &models.CacheEntry{
		Base:       baseCurrency,
		Rates:      copyRates(response.Rates),
		SourceDate: response.SourceDate,
		Provider:   response.Provider,
		FetchedAt:  fetchedAt,
		ExpiresAt:  fetchedAt.Add(rateCache.options.TTL),
	}
	rateCache.entries[baseCurrency] = entry
	rateCache.cacheMutex.Unlock()

	rateCache.emitf(EventInfo, "rates updated for %s (%d currencies)", baseCurrency, len(entry.Rates))
	return entry, nil
}

// fetchWithRetry applies the retry policy to a single refresh.
func (rateCache *RateCache) fetchWithRetry(ctx context.Context, baseCurrency string, options Options) (models.RatesResponse, error) {
	var lastError error

	for attempt := 1; attempt <= options.Retry.Attempts; attempt++ {
		rateCache.apiCalls.Add(1)

		response, err := rateCache.fetcher.FetchRates(ctx, baseCurrency)
		if err == nil {
			err = validateResponse(response)
		}
		if err == nil {
			return response, nil
		}
		lastError = err

		if attempt == options.Retry.Attempts {
			break
		}
		rateCache.emitf(EventWarn, "attempt %d for %s failed, retrying in %s: %v", attempt, baseCurrency, options.Retry.Delay, err)
		if waitError := wait(ctx, options.Retry.Delay); waitError != nil {
			return models.RatesResponse{}, models.NewNetworkError("retry aborted", waitError)
		}
	}

	return models.RatesResponse{}, lastError
}

func validateResponse(response models.RatesResponse) error {
	if len(response.Rates) == 0 {
		return models.NewMalformedResponseError("empty rates table", nil)
	}
	return nil
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (rateCache *RateCache) emitf(level EventLevel, format string, args ...interface{}) {
	rateCache.cacheMutex.RLock()
	enabled := rateCache.options.LoggingEnabled
	hook := rateCache.options.OnEvent
	rateCache.cacheMutex.RUnlock()

	if !enabled || hook == nil {
		return
	}
	hook(level, fmt.Sprintf(format, args...))
}

func copyRates(rates map[string]float64) map[string]float64 {
	copied := make(map[string]float64, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	return copied
}
