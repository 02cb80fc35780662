package ratecache

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

// GetRate returns the rate from fromCurrency to toCurrency. Converting a
// currency to itself is exactly 1 and never touches the cache.
func (rateCache *RateCache) GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	if fromCurrency == toCurrency {
		return 1, nil
	}

	rates, err := rateCache.GetRates(ctx, fromCurrency)
	if err != nil {
		return 0, err
	}

	rate, found := rates[toCurrency]
	if !found || !usableRate(rate) {
		rateCache.emitf(EventWarn, "no rate for %s -> %s", fromCurrency, toCurrency)
		return 0, models.NewRateNotFoundError(fromCurrency, toCurrency)
	}

	rateCache.emitf(EventDebug, "rate %s/%s: %v", fromCurrency, toCurrency, rate)
	return rate, nil
}

// GetMultipleRates projects the table for baseCurrency onto targetCurrencies.
// Codes missing upstream are omitted from the result.
func (rateCache *RateCache) GetMultipleRates(ctx context.Context, baseCurrency string, targetCurrencies []string) (map[string]float64, error) {
	rates, err := rateCache.GetRates(ctx, baseCurrency)
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(targetCurrencies))
	for _, currency := range targetCurrencies {
		rate, found := rates[currency]
		if !found || !usableRate(rate) {
			rateCache.emitf(EventWarn, "currency %s not found in %s rates", currency, baseCurrency)
			continue
		}
		result[currency] = rate
	}

	rateCache.emitf(EventDebug, "resolved %d/%d rates for %s", len(result), len(targetCurrencies), baseCurrency)
	return result, nil
}

// Convert converts amount using the current rate. Only the reported values
// are rounded: the converted amount to 2 places, the inverse rate to 6.
func (rateCache *RateCache) Convert(ctx context.Context, amount float64, fromCurrency, toCurrency string) (models.ConversionResult, error) {
	rate, err := rateCache.GetRate(ctx, fromCurrency, toCurrency)
	if err != nil {
		return models.ConversionResult{}, err
	}

	convertedAmount := amount * rate
	inverseRate := 1 / rate

	return models.ConversionResult{
		Amount:          amount,
		From:            fromCurrency,
		To:              toCurrency,
		Rate:            rate,
		ConvertedAmount: roundTo(convertedAmount, 2),
		InverseRate:     roundTo(inverseRate, 6),
		Inverse: models.InverseConversion{
			Rate:   roundTo(inverseRate, 6),
			Amount: roundTo(convertedAmount*inverseRate, 2),
		},
		Timestamp: rateCache.Options().Clock.Now(),
	}, nil
}

// Preload warms the cache one currency at a time. Failures are reported in
// the result rather than returned.
func (rateCache *RateCache) Preload(ctx context.Context, baseCurrencies []string) models.PreloadResult {
	clock := rateCache.Options().Clock
	startTime := clock.Now()

	rateCache.emitf(EventInfo, "preloading rates for %d currencies", len(baseCurrencies))

	result := models.PreloadResult{
		Succeeded: []string{},
		Failed:    []models.PreloadFailure{},
	}
	for index, baseCurrency := range baseCurrencies {
		if ctx.Err() != nil {
			reason := models.NewNetworkError("preload aborted", ctx.Err()).Error()
			for _, skipped := range baseCurrencies[index:] {
				result.Failed = append(result.Failed, models.PreloadFailure{Currency: skipped, Error: reason})
			}
			break
		}
		if _, err := rateCache.GetRates(ctx, baseCurrency); err != nil {
			result.Failed = append(result.Failed, models.PreloadFailure{Currency: baseCurrency, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, baseCurrency)
	}
	result.Elapsed = clock.Now().Sub(startTime)

	rateCache.emitf(EventInfo, "preload finished in %s: %d succeeded, %d failed",
		result.Elapsed, len(result.Succeeded), len(result.Failed))
	return result
}

// IsCurrencyAvailable reports whether code appears in the reference table.
// Lookup failures are reported as unavailable.
func (rateCache *RateCache) IsCurrencyAvailable(ctx context.Context, code string) bool {
	referenceBase := rateCache.Options().ReferenceBase
	if code == referenceBase {
		return true
	}

	rates, err := rateCache.GetRates(ctx, referenceBase)
	if err != nil {
		rateCache.emitf(EventError, "could not validate currency %s: %v", code, err)
		return false
	}
	_, found := rates[code]
	return found
}

// AvailableCurrencies lists the reference base and every code in its table, sorted.
func (rateCache *RateCache) AvailableCurrencies(ctx context.Context) ([]string, error) {
	referenceBase := rateCache.Options().ReferenceBase

	rates, err := rateCache.GetRates(ctx, referenceBase)
	if err != nil {
		return nil, err
	}

	currencies := make([]string, 0, len(rates)+1)
	for code := range rates {
		if code != referenceBase {
			currencies = append(currencies, code)
		}
	}
	currencies = append(currencies, referenceBase)
	sort.Strings(currencies)
	return currencies, nil
}

// CalculateVariation compares two observations of a rate.
func CalculateVariation(currentValue, previousValue float64) models.Variation {
	if previousValue == 0 || math.IsNaN(previousValue) {
		return models.Variation{Direction: models.DirectionStable, Formatted: "0.00%"}
	}

	change := currentValue - previousValue
	changePercent := change / previousValue * 100

	direction := models.DirectionStable
	arrow := "→"
	switch {
	case change > 0:
		direction = models.DirectionIncrease
		arrow = "▲"
	case change < 0:
		direction = models.DirectionDecrease
		arrow = "▼"
	}

	return models.Variation{
		Change:        roundTo(change, 4),
		ChangePercent: roundTo(changePercent, 2),
		Direction:     direction,
		Formatted:     fmt.Sprintf("%s %.2f%%", arrow, math.Abs(changePercent)),
	}
}

// usableRate rejects zero, negative and non-finite rates.
func usableRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
