package ratecache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
	"github.com/dalfonso89/currency-rate-cache/internal/ratecache"
)

func TestGetRate(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9, "ZERO": 0})
	ctx := context.Background()

	tests := []struct {
		name        string
		from        string
		to          string
		expected    float64
		expectedErr error
	}{
		{"present target", "USD", "EUR", 0.9, nil},
		{"absent target", "USD", "XYZ", 0, models.ErrRateNotFound},
		{"zero rate is unusable", "USD", "ZERO", 0, models.ErrRateNotFound},
		{"identity without fetch", "JPY", "JPY", 1, nil},
		{"unknown base", "XXX", "EUR", 0, models.ErrRatesUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := cache.GetRate(ctx, tt.from, tt.to)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rate)
		})
	}

	assert.Zero(t, fetcher.Calls("JPY"), "identity conversion must not fetch")
}

func TestGetMultipleRates_OmitsMissing(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9, "GBP": 0.8})

	rates, err := cache.GetMultipleRates(context.Background(), "USD", []string{"EUR", "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"EUR": 0.9}, rates)
	assert.Equal(t, 1, fetcher.Calls("USD"))
}

func TestGetMultipleRates_PropagatesUnavailable(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.Fail("USD", errors.New("down"))

	_, err := cache.GetMultipleRates(context.Background(), "USD", []string{"EUR"})
	assert.ErrorIs(t, err, models.ErrRatesUnavailable)
}

func TestConvert(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9, "JPY": 149.123456789})
	ctx := context.Background()

	result, err := cache.Convert(ctx, 100, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 90.0, result.ConvertedAmount)
	assert.Equal(t, 0.9, result.Rate)
	assert.InDelta(t, 1.111111, result.InverseRate, 1e-9)
	assert.InDelta(t, 100.0, result.Inverse.Amount, 1e-9)
	assert.Equal(t, "USD", result.From)
	assert.Equal(t, "EUR", result.To)
	assert.Equal(t, epoch, result.Timestamp)

	result, err = cache.Convert(ctx, 3, "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, 149.123456789, result.Rate, "rate keeps full precision")
	assert.Equal(t, 447.37, result.ConvertedAmount)

	_, err = cache.Convert(ctx, 1, "USD", "XYZ")
	assert.ErrorIs(t, err, models.ErrRateNotFound)
}

func TestPreload(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9})
	fetcher.SetRates("EUR", map[string]float64{"USD": 1.1})
	fetcher.Fail("BAD", errors.New("unsupported code"))

	result := cache.Preload(context.Background(), []string{"USD", "BAD", "EUR"})

	assert.Equal(t, []string{"USD", "EUR"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "BAD", result.Failed[0].Currency)
	assert.Contains(t, result.Failed[0].Error, "rates unavailable for BAD")
	assert.Len(t, cache.CacheInfo(), 2)
}

func TestPreload_StopsAtDeadline(t *testing.T) {
	cache, fetcher, _ := newTestCache(t, ratecache.WithRetry(3, 200*time.Millisecond))
	for _, code := range []string{"USD", "EUR", "GBP"} {
		fetcher.Fail(code, errors.New("connection refused"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := cache.Preload(ctx, []string{"USD", "EUR", "GBP"})

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 3)
	assert.Equal(t, "USD", result.Failed[0].Currency)
	assert.Contains(t, result.Failed[0].Error, context.DeadlineExceeded.Error())
	for _, failure := range result.Failed[1:] {
		assert.Contains(t, failure.Error, "preload aborted")
	}
	assert.Zero(t, fetcher.Calls("EUR"))
	assert.Zero(t, fetcher.Calls("GBP"))
}

func TestPreload_CancelledBeforeStart(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := cache.Preload(ctx, []string{"USD", "EUR"})
	assert.Empty(t, result.Succeeded)
	assert.Len(t, result.Failed, 2)
	assert.Zero(t, fetcher.Calls("USD"))
	assert.Empty(t, cache.CacheInfo())
}

func TestPreload_Empty(t *testing.T) {
	cache, _, _ := newTestCache(t)

	result := cache.Preload(context.Background(), nil)
	assert.Empty(t, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Zero(t, result.Elapsed)
}

func TestIsCurrencyAvailable(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9})
	ctx := context.Background()

	assert.True(t, cache.IsCurrencyAvailable(ctx, "USD"))
	assert.True(t, cache.IsCurrencyAvailable(ctx, "EUR"))
	assert.False(t, cache.IsCurrencyAvailable(ctx, "XYZ"))
}

func TestIsCurrencyAvailable_FailureIsFalse(t *testing.T) {
	cache, fetcher, _ := newTestCache(t)
	fetcher.Fail("USD", errors.New("down"))

	assert.False(t, cache.IsCurrencyAvailable(context.Background(), "EUR"))
}

func TestAvailableCurrencies(t *testing.T) {
	cache, fetcher, _ := newTestCache(t, ratecache.WithReferenceBase("EUR"))
	fetcher.SetRates("EUR", map[string]float64{"USD": 1.1, "GBP": 0.87, "EUR": 1})

	currencies, err := cache.AvailableCurrencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR", "GBP", "USD"}, currencies)
}

func TestCalculateVariation(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected models.Variation
	}{
		{
			name:     "increase",
			current:  1.1,
			previous: 1.0,
			expected: models.Variation{Change: 0.1, ChangePercent: 10, Direction: models.DirectionIncrease, Formatted: "▲ 10.00%"},
		},
		{
			name:     "decrease",
			current:  0.95,
			previous: 1.0,
			expected: models.Variation{Change: -0.05, ChangePercent: -5, Direction: models.DirectionDecrease, Formatted: "▼ 5.00%"},
		},
		{
			name:     "unchanged",
			current:  2,
			previous: 2,
			expected: models.Variation{Change: 0, ChangePercent: 0, Direction: models.DirectionStable, Formatted: "→ 0.00%"},
		},
		{
			name:     "no previous value",
			current:  5,
			previous: 0,
			expected: models.Variation{Direction: models.DirectionStable, Formatted: "0.00%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ratecache.CalculateVariation(tt.current, tt.previous))
		})
	}
}

func TestPreload_ElapsedUsesClock(t *testing.T) {
	cache, fetcher, clock := newTestCache(t)
	gate := make(chan struct{})
	fetcher.SetRates("USD", map[string]float64{"EUR": 0.9})
	fetcher.Gate = gate

	done := make(chan time.Duration)
	go func() {
		done <- cache.Preload(context.Background(), []string{"USD"}).Elapsed
	}()

	require.Eventually(t, func() bool { return fetcher.Calls("USD") == 1 }, time.Second, time.Millisecond)
	clock.Advance(3 * time.Second)
	close(gate)

	assert.Equal(t, 3*time.Second, <-done)
}
