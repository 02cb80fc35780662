package service

import (
	"context"
	"errors"

	"github.com/dalfonso89/currency-rate-cache/internal/config"
	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

// Upstream queries every enabled provider concurrently and returns the first
// successful rate table. It is the fetch source of the rate cache.
type Upstream struct {
	configuration *config.Config
	logger        *logger.Logger
	providers     []ExchangeRateProvider
}

// NewUpstream creates an Upstream over all enabled providers in configuration
func NewUpstream(configuration *config.Config, logger *logger.Logger) *Upstream {
	providerFactory := NewProviderFactory(configuration, logger)
	return NewUpstreamWithProviders(configuration, logger, providerFactory.CreateProviders())
}

// NewUpstreamWithProviders creates an Upstream over an explicit provider list
func NewUpstreamWithProviders(configuration *config.Config, logger *logger.Logger, providers []ExchangeRateProvider) *Upstream {
	return &Upstream{
		configuration: configuration,
		logger:        logger,
		providers:     providers,
	}
}

// FetchRates returns the first successful provider answer for baseCurrency
func (upstream *Upstream) FetchRates(requestContext context.Context, baseCurrency string) (models.RatesResponse, error) {
	if len(upstream.providers) == 0 {
		return models.RatesResponse{}, models.NewNetworkError("no exchange rate providers configured", nil)
	}

	type providerResult struct {
		data models.RatesResponse
		err  error
	}

	// Losers are cancelled once a winner is found
	fanOutContext, cancel := context.WithCancel(requestContext)
	defer cancel()

	resultsChannel := make(chan providerResult, len(upstream.providers))

	maxConcurrent := upstream.configuration.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = len(upstream.providers)
	}
	semaphore := make(chan struct{}, maxConcurrent)

	for _, provider := range upstream.providers {
		go func(p ExchangeRateProvider) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if fanOutContext.Err() != nil {
				resultsChannel <- providerResult{err: fanOutContext.Err()}
				return
			}

			upstream.logger.Debugf("Fetching rates from provider: %s", p.GetName())
			data, err := p.GetRates(fanOutContext, baseCurrency)
			resultsChannel <- providerResult{data, err}
		}(provider)
	}

	var firstError error
	for i := 0; i < len(upstream.providers); i++ {
		select {
		case <-requestContext.Done():
			return models.RatesResponse{}, models.NewNetworkError("request context cancelled", requestContext.Err())
		case result := <-resultsChannel:
			if result.err == nil {
				upstream.logger.Infof("Successfully fetched %s rates from provider: %s", baseCurrency, result.data.Provider)
				return result.data, nil
			}

			upstream.logProviderError(result.err)
			if firstError == nil {
				firstError = result.err
			}
		}
	}

	upstream.logger.Errorf("All %d exchange rate providers failed for %s", len(upstream.providers), baseCurrency)
	return models.RatesResponse{}, firstError
}

func (upstream *Upstream) logProviderError(err error) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		upstream.logger.Warnf("Provider cancelled: %v", err)
	case errors.Is(err, models.ErrNetwork):
		upstream.logger.Warnf("Provider network error: %v", err)
	case errors.Is(err, models.ErrMalformedResponse):
		upstream.logger.Warnf("Provider invalid response: %v", err)
	default:
		upstream.logger.Warnf("Provider failed: %v", err)
	}
}

// GetProviderStatus returns the status of all configured providers
func (upstream *Upstream) GetProviderStatus() []models.ProviderStatus {
	statuses := make([]models.ProviderStatus, len(upstream.providers))
	for i, provider := range upstream.providers {
		statuses[i] = models.ProviderStatus{
			Name:     provider.GetName(),
			Enabled:  provider.IsEnabled(),
			Priority: provider.GetPriority(),
		}
	}
	return statuses
}
