package ratecache

import (
	"fmt"
	"math"
	"time"

	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

// ClearAll removes every entry and returns how many were removed.
func (rateCache *RateCache) ClearAll() int {
	rateCache.cacheMutex.Lock()
	removed := len(rateCache.entries)
	rateCache.entries = make(map[string]*models.CacheEntry)
	rateCache.cacheMutex.Unlock()

	rateCache.emitf(EventInfo, "cache cleared (%d entries removed)", removed)
	return removed
}

// ClearOne removes the entry for baseCurrency. Missing entries are not an error.
func (rateCache *RateCache) ClearOne(baseCurrency string) bool {
	rateCache.cacheMutex.Lock()
	_, exists := rateCache.entries[baseCurrency]
	delete(rateCache.entries, baseCurrency)
	rateCache.cacheMutex.Unlock()

	if exists {
		rateCache.emitf(EventInfo, "cache entry for %s removed", baseCurrency)
	}
	return exists
}

// SweepExpired removes every entry past its expiry and returns the count.
func (rateCache *RateCache) SweepExpired() int {
	rateCache.cacheMutex.Lock()
	now := rateCache.options.Clock.Now()
	removed := 0
	for baseCurrency, entry := range rateCache.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(rateCache.entries, baseCurrency)
			removed++
		}
	}
	rateCache.cacheMutex.Unlock()

	rateCache.emitf(EventInfo, "removed %d expired cache entries", removed)
	return removed
}

// EntryInfo reports the state of one entry.
func (rateCache *RateCache) EntryInfo(baseCurrency string) (models.EntryInfo, bool) {
	rateCache.cacheMutex.RLock()
	defer rateCache.cacheMutex.RUnlock()

	entry, exists := rateCache.entries[baseCurrency]
	if !exists {
		return models.EntryInfo{}, false
	}
	return describeEntry(entry, rateCache.options.Clock.Now()), true
}

// CacheInfo reports the state of every entry keyed by base currency.
func (rateCache *RateCache) CacheInfo() map[string]models.EntryInfo {
	rateCache.cacheMutex.RLock()
	defer rateCache.cacheMutex.RUnlock()
	return rateCache.cacheInfoLocked(rateCache.options.Clock.Now())
}

func (rateCache *RateCache) cacheInfoLocked(now time.Time) map[string]models.EntryInfo {
	info := make(map[string]models.EntryInfo, len(rateCache.entries))
	for baseCurrency, entry := range rateCache.entries {
		info[baseCurrency] = describeEntry(entry, now)
	}
	return info
}

// Stats returns cumulative counters and entry health.
func (rateCache *RateCache) Stats() models.Stats {
	rateCache.cacheMutex.RLock()
	details := rateCache.cacheInfoLocked(rateCache.options.Clock.Now())
	ttl := rateCache.options.TTL
	rateCache.cacheMutex.RUnlock()

	validEntries := 0
	for _, info := range details {
		if info.Valid {
			validEntries++
		}
	}

	hits := rateCache.cacheHits.Load()
	misses := rateCache.cacheMisses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return models.Stats{
		TotalEntries:   len(details),
		ValidEntries:   validEntries,
		ExpiredEntries: len(details) - validEntries,
		CacheDuration:  ttl,
		APICallCount:   rateCache.apiCalls.Load(),
		CacheHitCount:  hits,
		CacheMissCount: misses,
		HitRate:        hitRate,
		CacheDetails:   details,
	}
}

// ResetStats zeroes the hit, miss and api call counters.
func (rateCache *RateCache) ResetStats() {
	rateCache.apiCalls.Store(0)
	rateCache.cacheHits.Store(0)
	rateCache.cacheMisses.Store(0)
	rateCache.emitf(EventInfo, "statistics reset")
}

func describeEntry(entry *models.CacheEntry, now time.Time) models.EntryInfo {
	age := now.Sub(entry.FetchedAt)
	if age < 0 {
		age = 0
	}
	valid := now.Before(entry.ExpiresAt)
	var expiresIn time.Duration
	if valid {
		expiresIn = entry.ExpiresAt.Sub(now)
	}

	return models.EntryInfo{
		Base:               entry.Base,
		Age:                age,
		AgeFormatted:       formatAge(age),
		Valid:              valid,
		ExpiresIn:          expiresIn,
		ExpiresInFormatted: formatAge(expiresIn),
		SourceDate:         entry.SourceDate,
		RateCount:          len(entry.Rates),
		Provider:           entry.Provider,
	}
}

// formatAge renders a duration as "45s" or "2m 5s".
func formatAge(age time.Duration) string {
	seconds := int64(math.Round(age.Seconds()))
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
