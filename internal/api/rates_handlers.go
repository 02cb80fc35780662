package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dalfonso89/currency-rate-cache/internal/ratecache"
)

// ratesResponse is the body of the rate table endpoints
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
	Count int                `json:"count"`
}

// GetRates returns the rate table for ?base=, defaulting to the reference base
func (handlers *Handlers) GetRates(context *gin.Context) {
	handlers.serveRates(context, context.DefaultQuery("base", handlers.rateCache.Options().ReferenceBase))
}

// GetRatesByBase returns the rate table for the path base. With ?symbols=
// only the listed currencies are returned.
func (handlers *Handlers) GetRatesByBase(context *gin.Context) {
	handlers.serveRates(context, context.Param("base"))
}

func (handlers *Handlers) serveRates(context *gin.Context, rawBase string) {
	baseCurrency, ok := handlers.currencyParam(context, "base", rawBase)
	if !ok {
		return
	}
	requestContext := context.Request.Context()

	if symbols := context.Query("symbols"); symbols != "" {
		targets := make([]string, 0)
		for _, symbol := range strings.Split(symbols, ",") {
			code, ok := handlers.currencyParam(context, "symbols", symbol)
			if !ok {
				return
			}
			targets = append(targets, code)
		}

		rates, err := handlers.rateCache.GetMultipleRates(requestContext, baseCurrency, targets)
		if err != nil {
			handlers.writeRateError(context, err)
			return
		}
		context.JSON(http.StatusOK, ratesResponse{Base: baseCurrency, Rates: rates, Count: len(rates)})
		return
	}

	rates, err := handlers.rateCache.GetRates(requestContext, baseCurrency)
	if err != nil {
		handlers.writeRateError(context, err)
		return
	}
	context.JSON(http.StatusOK, ratesResponse{Base: baseCurrency, Rates: rates, Count: len(rates)})
}

// GetRate returns a single rate for ?from=&to=
func (handlers *Handlers) GetRate(context *gin.Context) {
	fromCurrency, ok := handlers.currencyParam(context, "from", context.Query("from"))
	if !ok {
		return
	}
	toCurrency, ok := handlers.currencyParam(context, "to", context.Query("to"))
	if !ok {
		return
	}

	rate, err := handlers.rateCache.GetRate(context.Request.Context(), fromCurrency, toCurrency)
	if err != nil {
		handlers.writeRateError(context, err)
		return
	}

	context.JSON(http.StatusOK, gin.H{"from": fromCurrency, "to": toCurrency, "rate": rate})
}

// Convert converts ?amount= from one currency to another
func (handlers *Handlers) Convert(context *gin.Context) {
	fromCurrency, ok := handlers.currencyParam(context, "from", context.Query("from"))
	if !ok {
		return
	}
	toCurrency, ok := handlers.currencyParam(context, "to", context.Query("to"))
	if !ok {
		return
	}
	amount, ok := handlers.floatParam(context, "amount")
	if !ok {
		return
	}

	result, err := handlers.rateCache.Convert(context.Request.Context(), amount, fromCurrency, toCurrency)
	if err != nil {
		handlers.writeRateError(context, err)
		return
	}

	context.JSON(http.StatusOK, result)
}

// Variation compares ?current= against ?previous=
func (handlers *Handlers) Variation(context *gin.Context) {
	current, ok := handlers.floatParam(context, "current")
	if !ok {
		return
	}
	previous, ok := handlers.floatParam(context, "previous")
	if !ok {
		return
	}

	context.JSON(http.StatusOK, ratecache.CalculateVariation(current, previous))
}

// ListCurrencies lists every currency known to the reference table
func (handlers *Handlers) ListCurrencies(context *gin.Context) {
	currencies, err := handlers.rateCache.AvailableCurrencies(context.Request.Context())
	if err != nil {
		handlers.writeRateError(context, err)
		return
	}

	context.JSON(http.StatusOK, gin.H{
		"base":       handlers.rateCache.Options().ReferenceBase,
		"currencies": currencies,
		"count":      len(currencies),
	})
}

// CurrencyAvailability reports whether the path code is quoted
func (handlers *Handlers) CurrencyAvailability(context *gin.Context) {
	code, ok := handlers.currencyParam(context, "code", context.Param("code"))
	if !ok {
		return
	}

	context.JSON(http.StatusOK, gin.H{
		"currency":  code,
		"available": handlers.rateCache.IsCurrencyAvailable(context.Request.Context(), code),
	})
}

// floatParam parses a required finite query number
func (handlers *Handlers) floatParam(context *gin.Context, name string) (float64, bool) {
	raw := context.Query(name)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid "+name, name+" must be a finite number, got "+strconv.Quote(raw))
		return 0, false
	}
	return value, true
}
