package ratecache

import "time"

const (
	DefaultTTL           = 5 * time.Minute
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second

	// DefaultReferenceBase is the table consulted by currency discovery.
	DefaultReferenceBase = "USD"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type EventLevel int

const (
	EventDebug EventLevel = iota
	EventInfo
	EventWarn
	EventError
)

func (level EventLevel) String() string {
	switch level {
	case EventDebug:
		return "debug"
	case EventInfo:
		return "info"
	case EventWarn:
		return "warn"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// EventHook receives diagnostic events. It must not call back into the cache.
type EventHook func(level EventLevel, message string)

// RetryPolicy bounds the upstream attempts made for a single refresh.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Options holds the cache configuration.
type Options struct {
	TTL            time.Duration
	Retry          RetryPolicy
	RefreshTimeout time.Duration
	LoggingEnabled bool
	ReferenceBase  string
	Clock          Clock
	OnEvent        EventHook
}

// Option mutates Options; used by New and Configure.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		TTL: DefaultTTL,
		Retry: RetryPolicy{
			Attempts: DefaultRetryAttempts,
			Delay:    DefaultRetryDelay,
		},
		LoggingEnabled: true,
		ReferenceBase:  DefaultReferenceBase,
		Clock:          SystemClock,
	}
}

// normalize replaces out-of-range values with defaults.
func (options *Options) normalize() {
	if options.TTL <= 0 {
		options.TTL = DefaultTTL
	}
	if options.Retry.Attempts < 1 {
		options.Retry.Attempts = 1
	}
	if options.Retry.Delay < 0 {
		options.Retry.Delay = 0
	}
	if options.RefreshTimeout < 0 {
		options.RefreshTimeout = 0
	}
	if options.ReferenceBase == "" {
		options.ReferenceBase = DefaultReferenceBase
	}
	if options.Clock == nil {
		options.Clock = SystemClock
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(options *Options) { options.TTL = ttl }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(options *Options) {
		options.Retry = RetryPolicy{Attempts: attempts, Delay: delay}
	}
}

// WithRefreshTimeout bounds a whole refresh, retries included. Zero leaves it unbounded.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(options *Options) { options.RefreshTimeout = timeout }
}

func WithLogging(enabled bool) Option {
	return func(options *Options) { options.LoggingEnabled = enabled }
}

func WithClock(clock Clock) Option {
	return func(options *Options) { options.Clock = clock }
}

func WithEventHook(hook EventHook) Option {
	return func(options *Options) { options.OnEvent = hook }
}

func WithReferenceBase(base string) Option {
	return func(options *Options) { options.ReferenceBase = base }
}
