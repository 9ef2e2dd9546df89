package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/taxigrad/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. LOG_BACKEND selects zerolog
// (default) or logrus, LOG_LEVEL the minimum level and APP_ENV=dev switches
// zerolog to console output.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("LOG_BACKEND"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}

// level returns LOG_LEVEL lower-cased, defaulting to info.
func level() string {
	l := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if l == "" {
		return "info"
	}
	return l
}
