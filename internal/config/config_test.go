package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var configKeys = []string{
	"PORT", "LOG_LEVEL", "MAX_CONCURRENT_REQUESTS",
	"RATES_CACHE_TTL_SECONDS", "RATES_RETRY_ATTEMPTS", "RATES_RETRY_DELAY_MS", "RATES_REFRESH_TIMEOUT_SECONDS", "RATES_CACHE_LOGGING",
	"RATES_SWEEP_INTERVAL_SECONDS", "RATES_REFERENCE_BASE", "RATES_PRELOAD",
	"EXCHANGE_RATE_API_ENABLED", "EXCHANGE_RATE_API_BASE_URL", "FRANKFURTER_ENABLED",
	"OPEN_EXCHANGE_RATES_ENABLED", "OPEN_EXCHANGE_RATES_API_KEY",
	"PROVIDER_1_NAME", "PROVIDER_1_BASE_URL", "PROVIDER_1_ENABLED", "PROVIDER_1_PRIORITY",
	"PROVIDER_2_NAME", "PROVIDER_2_BASE_URL", "PROVIDER_2_ENABLED",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW_SECONDS", "RATE_LIMIT_BURST",
}

// clearConfigEnv blanks every key Load reads; getEnv treats empty as unset.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config) bool
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			expected: func(cfg *Config) bool {
				return cfg.Port == "8081" &&
					cfg.LogLevel == "info" &&
					len(cfg.ExchangeRateProviders) == 2 &&
					cfg.Cache.TTL == 5*time.Minute &&
					cfg.Cache.RetryAttempts == 3 &&
					cfg.Cache.RetryDelay == time.Second &&
					cfg.Cache.RefreshTimeout == 45*time.Second &&
					cfg.Cache.LoggingEnabled &&
					cfg.Cache.SweepInterval == time.Minute &&
					cfg.Cache.ReferenceBase == "USD" &&
					cfg.MaxConcurrentRequests == 4 &&
					cfg.RateLimitEnabled &&
					cfg.RateLimitRequests == 100 &&
					cfg.RateLimitWindow == 60*time.Second &&
					cfg.RateLimitBurst == 10
			},
		},
		{
			name: "custom configuration",
			envVars: map[string]string{
				"PORT":                          "9090",
				"LOG_LEVEL":                     "debug",
				"RATES_CACHE_TTL_SECONDS":       "120",
				"RATES_RETRY_ATTEMPTS":          "1",
				"RATES_RETRY_DELAY_MS":          "250",
				"RATES_REFRESH_TIMEOUT_SECONDS": "5",
				"RATES_CACHE_LOGGING":           "false",
				"RATES_SWEEP_INTERVAL_SECONDS":  "0",
				"MAX_CONCURRENT_REQUESTS":       "8",
				"RATE_LIMIT_ENABLED":            "false",
				"RATE_LIMIT_REQUESTS":           "200",
				"RATE_LIMIT_WINDOW_SECONDS":     "120",
				"RATE_LIMIT_BURST":              "20",
			},
			expected: func(cfg *Config) bool {
				return cfg.Port == "9090" &&
					cfg.LogLevel == "debug" &&
					cfg.Cache.TTL == 120*time.Second &&
					cfg.Cache.RetryAttempts == 1 &&
					cfg.Cache.RetryDelay == 250*time.Millisecond &&
					cfg.Cache.RefreshTimeout == 5*time.Second &&
					!cfg.Cache.LoggingEnabled &&
					cfg.Cache.SweepInterval == 0 &&
					cfg.MaxConcurrentRequests == 8 &&
					!cfg.RateLimitEnabled &&
					cfg.RateLimitRequests == 200 &&
					cfg.RateLimitWindow == 120*time.Second &&
					cfg.RateLimitBurst == 20
			},
		},
		{
			name: "invalid integers fall back to defaults",
			envVars: map[string]string{
				"RATES_CACHE_TTL_SECONDS": "soon",
				"RATE_LIMIT_BURST":        "many",
			},
			expected: func(cfg *Config) bool {
				return cfg.Cache.TTL == 5*time.Minute && cfg.RateLimitBurst == 10
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if !tt.expected(cfg) {
				t.Errorf("Load() configuration does not match expected values: %+v", cfg)
			}
		})
	}
}

func TestLoad_RejectsInvalidCacheSettings(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{"negative ttl", map[string]string{"RATES_CACHE_TTL_SECONDS": "-5"}},
		{"zero retry attempts", map[string]string{"RATES_RETRY_ATTEMPTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error, got nil")
			}
		})
	}
}

func TestLoadExchangeRateProviders(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected []string
	}{
		{
			name:     "keyless providers enabled by default",
			envVars:  map[string]string{},
			expected: []string{"erapi", "frankfurter"},
		},
		{
			name:     "openexchangerates enabled by api key",
			envVars:  map[string]string{"OPEN_EXCHANGE_RATES_API_KEY": "secret"},
			expected: []string{"erapi", "frankfurter", "openexchangerates"},
		},
		{
			name: "some providers disabled",
			envVars: map[string]string{
				"EXCHANGE_RATE_API_ENABLED": "false",
			},
			expected: []string{"frankfurter"},
		},
		{
			name: "additional providers sorted by priority",
			envVars: map[string]string{
				"PROVIDER_1_NAME":     "custom1",
				"PROVIDER_1_BASE_URL": "https://api1.example.com",
				"PROVIDER_1_PRIORITY": "0",
				"PROVIDER_2_NAME":     "custom2",
				"PROVIDER_2_BASE_URL": "https://api2.example.com",
			},
			expected: []string{"custom1", "erapi", "frankfurter", "custom2"},
		},
		{
			name: "additional provider without url is ignored",
			envVars: map[string]string{
				"PROVIDER_1_NAME": "broken",
			},
			expected: []string{"erapi", "frankfurter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			names := []string{}
			for _, provider := range loadExchangeRateProviders() {
				names = append(names, provider.Name)
			}

			if diff := cmp.Diff(tt.expected, names); diff != "" {
				t.Errorf("loadExchangeRateProviders() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"fallback used when unset", "", []string{"USD", "EUR"}},
		{"trims and upper-cases", " gbp , jpy ,, ", []string{"GBP", "JPY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RATES_PRELOAD", tt.envValue)

			if diff := cmp.Diff(tt.expected, getEnvList("RATES_PRELOAD", "USD,EUR")); diff != "" {
				t.Errorf("getEnvList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		fallback string
		envValue string
		expected string
	}{
		{
			name:     "environment variable exists",
			key:      "TEST_VAR",
			fallback: "default",
			envValue: "env_value",
			expected: "env_value",
		},
		{
			name:     "environment variable does not exist",
			key:      "NONEXISTENT_VAR",
			fallback: "default",
			envValue: "",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			result := getEnv(tt.key, tt.fallback)
			if result != tt.expected {
				t.Errorf("getEnv() = %v, want %v", result, tt.expected)
			}
		})
	}
}
