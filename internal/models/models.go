package models

import (
	"encoding/json"
	"time"
)

// RatesResponse is a rate table as returned by an upstream provider.
type RatesResponse struct {
	Base       string             `json:"base"`
	Timestamp  int64              `json:"timestamp"`
	SourceDate string             `json:"date"`
	Rates      map[string]float64 `json:"rates"`
	Provider   string             `json:"provider"`
}

// CacheEntry is the cached rate table for one base currency.
type CacheEntry struct {
	Base       string
	Rates      map[string]float64
	SourceDate string
	Provider   string
	FetchedAt  time.Time
	ExpiresAt  time.Time
}

// EntryInfo describes the health of a single cache entry.
type EntryInfo struct {
	Base               string        `json:"base"`
	Age                time.Duration `json:"-"`
	AgeFormatted       string        `json:"age_formatted"`
	Valid              bool          `json:"valid"`
	ExpiresIn          time.Duration `json:"-"`
	ExpiresInFormatted string        `json:"expires_in_formatted"`
	SourceDate         string        `json:"source_date"`
	RateCount          int           `json:"rate_count"`
	Provider           string        `json:"provider,omitempty"`
}

// MarshalJSON reports durations in seconds.
func (info EntryInfo) MarshalJSON() ([]byte, error) {
	type entryInfo EntryInfo
	return json.Marshal(struct {
		entryInfo
		AgeSeconds       float64 `json:"age_seconds"`
		ExpiresInSeconds float64 `json:"expires_in_seconds"`
	}{entryInfo(info), info.Age.Seconds(), info.ExpiresIn.Seconds()})
}

// Stats is a snapshot of cache counters.
type Stats struct {
	TotalEntries   int                  `json:"total_entries"`
	ValidEntries   int                  `json:"valid_entries"`
	ExpiredEntries int                  `json:"expired_entries"`
	CacheDuration  time.Duration        `json:"-"`
	APICallCount   int64                `json:"api_call_count"`
	CacheHitCount  int64                `json:"cache_hit_count"`
	CacheMissCount int64                `json:"cache_miss_count"`
	HitRate        float64              `json:"hit_rate"`
	CacheDetails   map[string]EntryInfo `json:"cache_details,omitempty"`
}

func (stats Stats) MarshalJSON() ([]byte, error) {
	type statsSnapshot Stats
	return json.Marshal(struct {
		statsSnapshot
		CacheDurationSeconds float64 `json:"cache_duration_seconds"`
	}{statsSnapshot(stats), stats.CacheDuration.Seconds()})
}

type InverseConversion struct {
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type ConversionResult struct {
	Amount          float64           `json:"amount"`
	From            string            `json:"from"`
	To              string            `json:"to"`
	Rate            float64           `json:"rate"`
	ConvertedAmount float64           `json:"converted_amount"`
	InverseRate     float64           `json:"inverse_rate"`
	Inverse         InverseConversion `json:"inverse"`
	Timestamp       time.Time         `json:"timestamp"`
}

type PreloadFailure struct {
	Currency string `json:"currency"`
	Error    string `json:"error"`
}

type PreloadResult struct {
	Succeeded []string         `json:"succeeded"`
	Failed    []PreloadFailure `json:"failed"`
	Elapsed   time.Duration    `json:"-"`
}

func (result PreloadResult) MarshalJSON() ([]byte, error) {
	type preloadResult PreloadResult
	return json.Marshal(struct {
		preloadResult
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}{preloadResult(result), result.Elapsed.Seconds()})
}

// Direction of a rate movement.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionStable   Direction = "stable"
)

type Variation struct {
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Direction     Direction `json:"direction"`
	Formatted     string    `json:"formatted"`
}

type HealthCheck struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Cache     *Stats           `json:"cache,omitempty"`
	Providers []ProviderStatus `json:"providers,omitempty"`
}

// ProviderStatus represents the status of an upstream provider
type ProviderStatus struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
