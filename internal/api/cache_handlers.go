package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// preloadRequest is the body of POST /api/v1/cache/preload
type preloadRequest struct {
	Currencies []string `json:"currencies" binding:"required"`
}

// Preload warms the cache for the requested base currencies
func (handlers *Handlers) Preload(context *gin.Context) {
	var request preloadRequest
	if err := context.ShouldBindJSON(&request); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	currencies := make([]string, 0, len(request.Currencies))
	for _, raw := range request.Currencies {
		code, ok := handlers.currencyParam(context, "currency", raw)
		if !ok {
			return
		}
		currencies = append(currencies, code)
	}

	result := handlers.rateCache.Preload(context.Request.Context(), currencies)
	handlers.logger.Infof("Preloaded %d currencies (%d failed)", len(result.Succeeded), len(result.Failed))

	context.JSON(http.StatusOK, result)
}

// CacheInfo describes every cache entry
func (handlers *Handlers) CacheInfo(context *gin.Context) {
	entries := handlers.rateCache.CacheInfo()
	context.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// EntryInfo describes the entry for the path base
func (handlers *Handlers) EntryInfo(context *gin.Context) {
	baseCurrency, ok := handlers.currencyParam(context, "base", context.Param("base"))
	if !ok {
		return
	}

	info, found := handlers.rateCache.EntryInfo(baseCurrency)
	if !found {
		handlers.writeErrorResponse(context, http.StatusNotFound, "entry not found", "no cached rates for "+baseCurrency)
		return
	}

	context.JSON(http.StatusOK, info)
}

// ClearCache drops every entry
func (handlers *Handlers) ClearCache(context *gin.Context) {
	cleared := handlers.rateCache.ClearAll()
	handlers.logger.Infof("Cleared %d cache entries", cleared)
	context.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// ClearEntry drops the entry for the path base. Clearing an absent entry is not an error.
func (handlers *Handlers) ClearEntry(context *gin.Context) {
	baseCurrency, ok := handlers.currencyParam(context, "base", context.Param("base"))
	if !ok {
		return
	}

	removed := handlers.rateCache.ClearOne(baseCurrency)
	context.JSON(http.StatusOK, gin.H{"base": baseCurrency, "removed": removed})
}

// Sweep removes expired entries
func (handlers *Handlers) Sweep(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{"removed": handlers.rateCache.SweepExpired()})
}

// Stats returns the cache counters with per-entry details
func (handlers *Handlers) Stats(context *gin.Context) {
	context.JSON(http.StatusOK, handlers.rateCache.Stats())
}

// ResetStats zeroes the cache counters
func (handlers *Handlers) ResetStats(context *gin.Context) {
	handlers.rateCache.ResetStats()
	context.JSON(http.StatusOK, handlers.rateCache.Stats())
}
