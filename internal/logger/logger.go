package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/currency-rate-cache/internal/ratecache"
)

// Logger wraps logrus.Logger
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance writing JSON to stdout
func New(level string) *Logger {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput creates a logger writing JSON to output
func NewWithOutput(level string, output io.Writer) *Logger {
	log := logrus.New()
	log.SetOutput(output)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(parseLevel(level))

	return &Logger{Logger: log}
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// CacheEventHook forwards rate cache events to the logger tagged with component
func (logger *Logger) CacheEventHook(component string) ratecache.EventHook {
	entry := logger.WithField("component", component)

	return func(level ratecache.EventLevel, message string) {
		switch level {
		case ratecache.EventDebug:
			entry.Debug(message)
		case ratecache.EventInfo:
			entry.Info(message)
		case ratecache.EventWarn:
			entry.Warn(message)
		default:
			entry.Error(message)
		}
	}
}
