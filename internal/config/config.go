package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ExchangeRateProvider represents a single exchange rate API provider
type ExchangeRateProvider struct {
	Name     string
	BaseURL  string
	APIKey   string
	Enabled  bool
	Priority int // Lower number = higher priority
	Timeout  time.Duration
}

// CacheConfig configures the rate cache
type CacheConfig struct {
	TTL            time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RefreshTimeout time.Duration
	LoggingEnabled bool
	SweepInterval  time.Duration
	ReferenceBase  string
	Preload        []string
}

// Config holds all configuration for the application
type Config struct {
	Port     string
	LogLevel string

	// Exchange rate providers, enabled only, sorted by priority
	ExchangeRateProviders []ExchangeRateProvider
	MaxConcurrentRequests int

	Cache CacheConfig

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	configuration := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ExchangeRateProviders: loadExchangeRateProviders(),
		MaxConcurrentRequests: getEnvInt("MAX_CONCURRENT_REQUESTS", 4),

		Cache: CacheConfig{
			TTL:            time.Duration(getEnvInt("RATES_CACHE_TTL_SECONDS", 300)) * time.Second,
			RetryAttempts:  getEnvInt("RATES_RETRY_ATTEMPTS", 3),
			RetryDelay:     time.Duration(getEnvInt("RATES_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			RefreshTimeout: time.Duration(getEnvInt("RATES_REFRESH_TIMEOUT_SECONDS", 45)) * time.Second,
			LoggingEnabled: getEnvBool("RATES_CACHE_LOGGING", true),
			SweepInterval:  time.Duration(getEnvInt("RATES_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			ReferenceBase:  strings.ToUpper(getEnv("RATES_REFERENCE_BASE", "USD")),
			Preload:        getEnvList("RATES_PRELOAD", "USD,EUR"),
		},

		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
	}

	if configuration.Cache.TTL <= 0 {
		return nil, fmt.Errorf("RATES_CACHE_TTL_SECONDS must be positive, got %s", configuration.Cache.TTL)
	}
	if configuration.Cache.RetryAttempts < 1 {
		return nil, fmt.Errorf("RATES_RETRY_ATTEMPTS must be at least 1, got %d", configuration.Cache.RetryAttempts)
	}

	return configuration, nil
}

// loadExchangeRateProviders loads exchange rate providers from environment variables
func loadExchangeRateProviders() []ExchangeRateProvider {
	openExchangeRatesKey := getEnv("OPEN_EXCHANGE_RATES_API_KEY", "")

	providers := []ExchangeRateProvider{
		{
			Name:     "erapi",
			BaseURL:  getEnv("EXCHANGE_RATE_API_BASE_URL", "https://open.er-api.com/v6/latest"),
			APIKey:   getEnv("EXCHANGE_RATE_API_KEY", ""),
			Enabled:  getEnvBool("EXCHANGE_RATE_API_ENABLED", true),
			Priority: 1,
			Timeout:  time.Duration(getEnvInt("EXCHANGE_RATE_API_TIMEOUT", 10)) * time.Second,
		},
		{
			Name:     "frankfurter",
			BaseURL:  getEnv("FRANKFURTER_API_BASE_URL", "https://api.frankfurter.app/latest"),
			Enabled:  getEnvBool("FRANKFURTER_ENABLED", true),
			Priority: 2,
			Timeout:  time.Duration(getEnvInt("FRANKFURTER_TIMEOUT", 10)) * time.Second,
		},
		{
			// openexchangerates rejects requests without an app id
			Name:     "openexchangerates",
			BaseURL:  getEnv("OPEN_EXCHANGE_RATES_BASE_URL", "https://openexchangerates.org/api/latest.json"),
			APIKey:   openExchangeRatesKey,
			Enabled:  getEnvBool("OPEN_EXCHANGE_RATES_ENABLED", openExchangeRatesKey != ""),
			Priority: 3,
			Timeout:  time.Duration(getEnvInt("OPEN_EXCHANGE_RATES_TIMEOUT", 10)) * time.Second,
		},
	}

	providers = append(providers, loadAdditionalProviders()...)

	enabledProviders := make([]ExchangeRateProvider, 0, len(providers))
	for _, provider := range providers {
		if provider.Enabled {
			enabledProviders = append(enabledProviders, provider)
		}
	}

	sort.SliceStable(enabledProviders, func(i, j int) bool {
		return enabledProviders[i].Priority < enabledProviders[j].Priority
	})

	return enabledProviders
}

// loadAdditionalProviders loads PROVIDER_1_*, PROVIDER_2_*, ... until a name is missing
func loadAdditionalProviders() []ExchangeRateProvider {
	providers := []ExchangeRateProvider{}

	for i := 1; i <= 10; i++ {
		name := getEnv(fmt.Sprintf("PROVIDER_%d_NAME", i), "")
		if name == "" {
			break
		}

		provider := ExchangeRateProvider{
			Name:     name,
			BaseURL:  getEnv(fmt.Sprintf("PROVIDER_%d_BASE_URL", i), ""),
			APIKey:   getEnv(fmt.Sprintf("PROVIDER_%d_API_KEY", i), ""),
			Enabled:  getEnvBool(fmt.Sprintf("PROVIDER_%d_ENABLED", i), true),
			Priority: getEnvInt(fmt.Sprintf("PROVIDER_%d_PRIORITY", i), 10),
			Timeout:  time.Duration(getEnvInt(fmt.Sprintf("PROVIDER_%d_TIMEOUT", i), 10)) * time.Second,
		}

		if provider.BaseURL != "" {
			providers = append(providers, provider)
		}
	}

	return providers
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt parses an integer variable, falling back on missing or invalid input
func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvList splits a comma separated variable into upper-cased, non-empty codes
func getEnvList(key, fallback string) []string {
	list := []string{}
	for _, item := range strings.Split(getEnv(key, fallback), ",") {
		if trimmed := strings.ToUpper(strings.TrimSpace(item)); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
