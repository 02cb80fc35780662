package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dalfonso89/currency-rate-cache/internal/api"
	"github.com/dalfonso89/currency-rate-cache/internal/config"
	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/metrics"
	"github.com/dalfonso89/currency-rate-cache/internal/platform"
	"github.com/dalfonso89/currency-rate-cache/internal/ratecache"
	"github.com/dalfonso89/currency-rate-cache/internal/ratelimit"
	"github.com/dalfonso89/currency-rate-cache/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	// Rate cache over the provider fan-out
	upstream := service.NewUpstream(cfg, logger)
	rateCache := ratecache.New(upstream,
		ratecache.WithTTL(cfg.Cache.TTL),
		ratecache.WithRetry(cfg.Cache.RetryAttempts, cfg.Cache.RetryDelay),
		ratecache.WithRefreshTimeout(cfg.Cache.RefreshTimeout),
		ratecache.WithLogging(cfg.Cache.LoggingEnabled),
		ratecache.WithReferenceBase(cfg.Cache.ReferenceBase),
		ratecache.WithEventHook(logger.CacheEventHook("ratecache")),
	)

	registry := metrics.NewRegistry()
	registry.MustRegister(metrics.NewCacheCollector(rateCache))

	rateLimiter := ratelimit.NewLimiter(cfg, logger)

	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:      logger,
		RateCache:   rateCache,
		Providers:   upstream,
		RateLimiter: rateLimiter,
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),

		// Leave room under WriteTimeout for the error response
		RequestTimeout: 10 * time.Second,
	})

	gin.SetMode(gin.ReleaseMode)
	router := handlers.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()

	if len(cfg.Cache.Preload) > 0 {
		preloadCtx, cancelPreload := context.WithTimeout(shutdownCtx, 30*time.Second)
		result := rateCache.Preload(preloadCtx, cfg.Cache.Preload)
		cancelPreload()
		for _, failure := range result.Failed {
			logger.Warnf("Preload of %s failed: %s", failure.Currency, failure.Error)
		}
	}

	go rateCache.RunSweeper(shutdownCtx, cfg.Cache.SweepInterval)

	go func() {
		logger.Info("Starting currency rate cache on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("Shutting down server...")

	rateLimiter.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
