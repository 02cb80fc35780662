package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalfonso89/currency-rate-cache/internal/config"
	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

const maxResponseBytes = 1 << 20

// HTTPExchangeRateProvider implements ExchangeRateProvider for HTTP-based APIs
type HTTPExchangeRateProvider struct {
	configuration config.ExchangeRateProvider
	logger        *logger.Logger
	httpClient    *http.Client
}

// NewHTTPExchangeRateProvider creates a new HTTP exchange rate provider
func NewHTTPExchangeRateProvider(configuration config.ExchangeRateProvider, logger *logger.Logger) *HTTPExchangeRateProvider {
	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPExchangeRateProvider{
		configuration: configuration,
		logger:        logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetName returns the provider name
func (provider *HTTPExchangeRateProvider) GetName() string {
	return provider.configuration.Name
}

// IsEnabled returns whether the provider is enabled
func (provider *HTTPExchangeRateProvider) IsEnabled() bool {
	return provider.configuration.Enabled
}

// GetPriority returns the provider priority
func (provider *HTTPExchangeRateProvider) GetPriority() int {
	return provider.configuration.Priority
}

// GetRates fetches exchange rates from the provider. Transport failures and
// non-200 answers are network errors; payloads without a usable rate table
// are malformed responses.
func (provider *HTTPExchangeRateProvider) GetRates(ctx context.Context, baseCurrency string) (models.RatesResponse, error) {
	requestURL := provider.buildURL(baseCurrency)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return models.RatesResponse{}, models.NewNetworkError("failed to create request", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := provider.httpClient.Do(request)
	if err != nil {
		return models.RatesResponse{}, models.NewNetworkError(fmt.Sprintf("request to %s failed", provider.GetName()), err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return models.RatesResponse{}, models.NewNetworkError(fmt.Sprintf("%s returned status %d", provider.GetName(), response.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return models.RatesResponse{}, models.NewNetworkError("failed to read response body", err)
	}

	provider.logger.Debugf("Received %d bytes from provider %s for %s", len(body), provider.GetName(), baseCurrency)
	return provider.parseResponse(body, baseCurrency)
}

// buildURL constructs the URL for the provider based on its configuration
func (provider *HTTPExchangeRateProvider) buildURL(baseCurrency string) string {
	baseURL := strings.TrimRight(provider.configuration.BaseURL, "/")
	query := url.Values{}

	switch provider.configuration.Name {
	case "erapi":
		// https://open.er-api.com/v6/latest/USD
		return baseURL + "/" + url.PathEscape(baseCurrency)
	case "openexchangerates":
		// https://openexchangerates.org/api/latest.json?app_id=KEY&base=USD
		query.Set("app_id", provider.configuration.APIKey)
		query.Set("base", baseCurrency)
	case "frankfurter":
		// https://api.frankfurter.app/latest?from=USD
		query.Set("from", baseCurrency)
	default:
		query.Set("base", baseCurrency)
		if provider.configuration.APIKey != "" {
			query.Set("access_key", provider.configuration.APIKey)
		}
	}

	return baseURL + "?" + query.Encode()
}

// upstreamPayload covers the response shapes of the supported providers
type upstreamPayload struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type"`
	Base               string             `json:"base"`
	BaseCode           string             `json:"base_code"`
	Date               string             `json:"date"`
	TimeLastUpdateUTC  string             `json:"time_last_update_utc"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	Timestamp          int64              `json:"timestamp"`
	Rates              map[string]float64 `json:"rates"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

// parseResponse parses the JSON response from the provider
func (provider *HTTPExchangeRateProvider) parseResponse(body []byte, baseCurrency string) (models.RatesResponse, error) {
	var payload upstreamPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.RatesResponse{}, models.NewMalformedResponseError(fmt.Sprintf("failed to parse %s response", provider.GetName()), err)
	}

	if payload.Result == "error" {
		return models.RatesResponse{}, models.NewNetworkError(fmt.Sprintf("%s reported error %q", provider.GetName(), payload.ErrorType), nil)
	}

	rates := payload.Rates
	if len(rates) == 0 {
		rates = payload.ConversionRates
	}
	if len(rates) == 0 {
		return models.RatesResponse{}, models.NewMalformedResponseError(fmt.Sprintf("%s response has no rates", provider.GetName()), nil)
	}

	base := payload.Base
	if base == "" {
		base = payload.BaseCode
	}
	if base == "" {
		base = baseCurrency
	}
	if !strings.EqualFold(base, baseCurrency) {
		return models.RatesResponse{}, models.NewMalformedResponseError(
			fmt.Sprintf("%s answered for base %s, requested %s", provider.GetName(), base, baseCurrency), nil)
	}

	timestamp := payload.Timestamp
	if timestamp == 0 {
		timestamp = payload.TimeLastUpdateUnix
	}

	return models.RatesResponse{
		Base:       baseCurrency,
		Timestamp:  timestamp,
		SourceDate: sourceDate(payload, timestamp),
		Rates:      rates,
		Provider:   provider.GetName(),
	}, nil
}

// sourceDate picks the as-of date the provider reported, verbatim when present
func sourceDate(payload upstreamPayload, timestamp int64) string {
	switch {
	case payload.Date != "":
		return payload.Date
	case payload.TimeLastUpdateUTC != "":
		return payload.TimeLastUpdateUTC
	case timestamp > 0:
		return time.Unix(timestamp, 0).UTC().Format("2006-01-02")
	default:
		return ""
	}
}
