package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dalfonso89/currency-rate-cache/internal/config"
	"github.com/dalfonso89/currency-rate-cache/internal/logger"
	"github.com/dalfonso89/currency-rate-cache/internal/models"
)

const (
	cleanupInterval = 5 * time.Minute
	idleBucketTTL   = 24 * time.Hour
)

// Limiter implements a token bucket rate limiter per client IP
type Limiter struct {
	Configuration *config.Config
	logger        *logger.Logger
	now           func() time.Time

	clientBuckets map[string]*TokenBucket
	bucketsMutex  sync.Mutex

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// TokenBucket holds the tokens of a single client
type TokenBucket struct {
	capacity     float64
	tokens       float64
	refillPerSec float64
	lastSeen     time.Time
	mu           sync.Mutex
}

// NewLimiter creates a limiter and starts its idle bucket cleanup
func NewLimiter(configuration *config.Config, logger *logger.Logger) *Limiter {
	rateLimiter := &Limiter{
		Configuration: configuration,
		logger:        logger,
		now:           time.Now,
		clientBuckets: make(map[string]*TokenBucket),
		stopCleanup:   make(chan struct{}),
	}

	go rateLimiter.cleanupLoop()

	return rateLimiter
}

// Allow reports whether a request from clientIP may proceed
func (rateLimiter *Limiter) Allow(clientIP string) bool {
	if !rateLimiter.Configuration.RateLimitEnabled {
		return true
	}

	now := rateLimiter.now()

	rateLimiter.bucketsMutex.Lock()
	tokenBucket, bucketExists := rateLimiter.clientBuckets[clientIP]
	if !bucketExists {
		tokenBucket = rateLimiter.newBucket(now)
		rateLimiter.clientBuckets[clientIP] = tokenBucket
	}
	rateLimiter.bucketsMutex.Unlock()

	return tokenBucket.take(now)
}

func (rateLimiter *Limiter) newBucket(now time.Time) *TokenBucket {
	burst := float64(rateLimiter.Configuration.RateLimitBurst)
	if burst < 1 {
		burst = 1
	}

	refillPerSec := 0.0
	if window := rateLimiter.Configuration.RateLimitWindow; window > 0 {
		refillPerSec = float64(rateLimiter.Configuration.RateLimitRequests) / window.Seconds()
	}

	return &TokenBucket{
		capacity:     burst,
		tokens:       burst,
		refillPerSec: refillPerSec,
		lastSeen:     now,
	}
}

// Middleware rejects requests over the limit with 429 and the X-RateLimit headers
func (rateLimiter *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := rateLimiter.GetClientIP(c.Request)

		if !rateLimiter.Allow(clientIP) {
			rateLimiter.logger.Warnf("Rate limit exceeded for IP: %s", clientIP)
			c.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.Configuration.RateLimitRequests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(rateLimiter.now().Add(rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "too many requests from " + clientIP,
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		c.Next()
	}
}

// GetClientIP extracts the real client IP from the request
func (rateLimiter *Limiter) GetClientIP(request *http.Request) string {
	// X-Forwarded-For may carry a chain; the first hop is the client
	if xForwardedFor := request.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		first := strings.TrimSpace(strings.Split(xForwardedFor, ",")[0])
		if clientIP := parseHostIP(first); clientIP != "" {
			return clientIP
		}
	}

	if xRealIP := request.Header.Get("X-Real-IP"); xRealIP != "" {
		if clientIP := parseHostIP(strings.TrimSpace(xRealIP)); clientIP != "" {
			return clientIP
		}
	}

	clientIP, _, parseError := net.SplitHostPort(request.RemoteAddr)
	if parseError != nil {
		return request.RemoteAddr
	}
	return clientIP
}

func parseHostIP(value string) string {
	if clientIP := net.ParseIP(value); clientIP != nil {
		return clientIP.String()
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		if clientIP := net.ParseIP(host); clientIP != nil {
			return clientIP.String()
		}
	}
	return ""
}

// BucketCount returns the number of tracked clients
func (rateLimiter *Limiter) BucketCount() int {
	rateLimiter.bucketsMutex.Lock()
	defer rateLimiter.bucketsMutex.Unlock()
	return len(rateLimiter.clientBuckets)
}

// removeIdle drops buckets not used since cutoff and returns how many went
func (rateLimiter *Limiter) removeIdle(cutoff time.Time) int {
	rateLimiter.bucketsMutex.Lock()
	defer rateLimiter.bucketsMutex.Unlock()

	removed := 0
	for clientIP, tokenBucket := range rateLimiter.clientBuckets {
		tokenBucket.mu.Lock()
		idle := tokenBucket.lastSeen.Before(cutoff)
		tokenBucket.mu.Unlock()
		if idle {
			delete(rateLimiter.clientBuckets, clientIP)
			removed++
		}
	}
	return removed
}

func (rateLimiter *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := rateLimiter.removeIdle(rateLimiter.now().Add(-idleBucketTTL)); removed > 0 {
				rateLimiter.logger.Debugf("Removed %d idle rate limit buckets", removed)
			}
		case <-rateLimiter.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rateLimiter *Limiter) Stop() {
	rateLimiter.stopOnce.Do(func() {
		close(rateLimiter.stopCleanup)
	})
}

// take refills the bucket for the time elapsed and consumes one token
func (tokenBucket *TokenBucket) take(now time.Time) bool {
	tokenBucket.mu.Lock()
	defer tokenBucket.mu.Unlock()

	if elapsed := now.Sub(tokenBucket.lastSeen); elapsed > 0 {
		tokenBucket.tokens = min(tokenBucket.capacity, tokenBucket.tokens+elapsed.Seconds()*tokenBucket.refillPerSec)
	}
	tokenBucket.lastSeen = now

	if tokenBucket.tokens >= 1 {
		tokenBucket.tokens--
		return true
	}
	return false
}
