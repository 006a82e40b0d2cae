// Package logger configures the application's logging.
//
// It uses *ZeroLog* for structured logging: JSON output by default,
// a human-friendly console writer in the local environment, and a
// dedicated logger for pgx query tracing.
package logger

import (
	"os"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/config"
)

// New builds the application's root logger from config.
//
// Level comes from primary.env: local runs at debug with console
// output, everything else logs JSON at info.
func New(cfg *config.Config) *zerolog.Logger {
	level := zerolog.InfoLevel
	if strings.EqualFold(cfg.Primary.Env, "local") {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(cfg.Primary.Env, "local") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	logger = logger.Level(level).With().
		Timestamp().
		Str("service", "api-test").
		Str("env", cfg.Primary.Env).
		Logger()

	return &logger
}

// NewPgxLogger returns a logger dedicated to pgx query tracing.
// It inherits the global level so SQL logging obeys the same threshold.
func NewPgxLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().
		Timestamp().
		Str("component", "pgx").
		Logger()
}

// GetPgxTraceLogLevel maps a zerolog level onto the pgx tracelog scale.
func GetPgxTraceLogLevel(level zerolog.Level) tracelog.LogLevel {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case zerolog.InfoLevel:
		return tracelog.LogLevelInfo
	case zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	case zerolog.ErrorLevel:
		return tracelog.LogLevelError
	default:
		return tracelog.LogLevelNone
	}
}
