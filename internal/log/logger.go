// Package log builds the zerolog loggers used by the simpace binaries.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for building a logger.
type Config struct {
	Level   string    // optional log level ("trace", "debug", "info", ...)
	Format  string    // "console" (default) or "json"
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
}

// New builds a logger from cfg. An unknown level or format is an error
// rather than a silent fallback.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	switch cfg.Format {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: must be console or json", cfg.Format)
	}

	service := cfg.Service
	if service == "" {
		service = "simpace"
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger(), nil
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
