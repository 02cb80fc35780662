package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/metrics"
	"github.com/dalfonso89/currency-rate-cache/internal/middleware"
	"github.com/dalfonso89/currency-rate-cache/internal/models"
	"github.com/dalfonso89/currency-rate-cache/internal/ratecache"
	"github.com/dalfonso89/currency-rate-cache/internal/ratelimit"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// ProviderLister reports the configured upstream providers
type ProviderLister interface {
	GetProviderStatus() []models.ProviderStatus
}

// HandlerConfig contains all dependencies for the Handlers
type HandlerConfig struct {
	Logger      *logger.Logger
	RateCache   *ratecache.RateCache
	Providers   ProviderLister
	RateLimiter *ratelimit.Limiter
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	// RequestTimeout bounds each /api/v1 request, zero for none
	RequestTimeout time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	logger      *logger.Logger
	startTime   time.Time
	rateCache   *ratecache.RateCache
	providers   ProviderLister
	rateLimiter *ratelimit.Limiter
	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics

	requestTimeout time.Duration
}

// NewHandlers creates a new handlers instance with all dependencies
func NewHandlers(config HandlerConfig) *Handlers {
	return &Handlers{
		logger:      config.Logger,
		startTime:   time.Now(),
		rateCache:   config.RateCache,
		providers:   config.Providers,
		rateLimiter: config.RateLimiter,
		registry:    config.Registry,
		httpMetrics: config.HTTPMetrics,

		requestTimeout: config.RequestTimeout,
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(handlers.corsMiddleware())
	if handlers.httpMetrics != nil {
		router.Use(middleware.Metrics(handlers.httpMetrics))
	}

	router.GET("/health", handlers.HealthCheck)
	if handlers.registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(handlers.registry)))
	}

	apiV1 := router.Group("/api/v1")
	if handlers.rateLimiter != nil {
		apiV1.Use(handlers.rateLimiter.Middleware())
	}
	apiV1.Use(middleware.Timeout(handlers.requestTimeout))
	{
		apiV1.GET("/rates", handlers.GetRates)
		apiV1.GET("/rates/:base", handlers.GetRatesByBase)
		apiV1.GET("/rate", handlers.GetRate)
		apiV1.GET("/convert", handlers.Convert)
		apiV1.GET("/variation", handlers.Variation)
		apiV1.GET("/currencies", handlers.ListCurrencies)
		apiV1.GET("/currencies/:code", handlers.CurrencyAvailability)

		cache := apiV1.Group("/cache")
		cache.GET("", handlers.CacheInfo)
		cache.GET("/:base", handlers.EntryInfo)
		cache.DELETE("", handlers.ClearCache)
		cache.DELETE("/:base", handlers.ClearEntry)
		cache.POST("/preload", handlers.Preload)
		cache.POST("/sweep", handlers.Sweep)

		apiV1.GET("/stats", handlers.Stats)
		apiV1.POST("/stats/reset", handlers.ResetStats)
	}

	return router
}

// HealthCheck handles health check requests
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	healthCheckResponse := models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(handlers.startTime).Round(time.Second).String(),
	}

	if handlers.rateCache != nil {
		stats := handlers.rateCache.Stats()
		stats.CacheDetails = nil
		healthCheckResponse.Cache = &stats
	}
	if handlers.providers != nil {
		healthCheckResponse.Providers = handlers.providers.GetProviderStatus()
	}

	context.JSON(http.StatusOK, healthCheckResponse)
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	errorResponse := models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	}

	context.JSON(statusCode, errorResponse)
}

// writeRateError maps rate cache failures onto HTTP statuses
func (handlers *Handlers) writeRateError(context *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRateNotFound):
		handlers.writeErrorResponse(context, http.StatusNotFound, "rate not found", err.Error())
	case errors.Is(err, models.ErrRatesUnavailable):
		handlers.logger.Errorf("Rates unavailable: %v", err)
		handlers.writeErrorResponse(context, http.StatusBadGateway, "rates unavailable", err.Error())
	default:
		handlers.logger.Errorf("Unexpected rate lookup failure: %v", err)
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// Currency codes are bounded alphanumeric tickers, so crypto codes like USDT pass.
const (
	minCurrencyCodeLength = 3
	maxCurrencyCodeLength = 10
)

// currencyParam normalizes a currency code and writes a 400 when it is not a ticker
func (handlers *Handlers) currencyParam(context *gin.Context, name, value string) (string, bool) {
	code := normalizeCurrency(value)
	if !isCurrencyCode(code) {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid "+name,
			fmt.Sprintf("currency codes are %d to %d letters or digits, got %q", minCurrencyCodeLength, maxCurrencyCodeLength, value))
		return "", false
	}
	return code, true
}

func normalizeCurrency(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func isCurrencyCode(code string) bool {
	if len(code) < minCurrencyCodeLength || len(code) > maxCurrencyCodeLength {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// corsMiddleware adds CORS headers using Gin middleware
func (handlers *Handlers) corsMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header("Access-Control-Allow-Origin", "*")
		context.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		context.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if context.Request.Method == http.MethodOptions {
			context.AbortWithStatus(http.StatusOK)
			return
		}

		context.Next()
	}
}
