// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability provides structured logging and Prometheus metrics
// for litreview components. Loggers and metrics are constructed once and
// passed to components; nothing here registers global state except the
// zerolog time format.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/pkg/types"
)

// NewLogger creates a zerolog logger from cfg.
func NewLogger(cfg types.LoggingConfig) zerolog.Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return newLogger(cfg, output)
}

func newLogger(cfg types.LoggingConfig, output io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger().Level(parseLevel(cfg.Level))
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent tags a logger with the component name.
func WithComponent(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithPaperContext adds paper and file fields to a logger.
func WithPaperContext(logger zerolog.Logger, paperID, file string) zerolog.Logger {
	return logger.With().
		Str("paper_id", paperID).
		Str("file", file).
		Logger()
}
