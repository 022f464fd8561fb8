// Package logging sets up the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/config"
)

// ParseLevel maps a configured level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global level and returns the root logger writing to
// stdout.
func Setup(cfg config.LoggingConfig) zerolog.Logger {
	return New(cfg, os.Stdout)
}

// New builds a root logger on w.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	if cfg.Console {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	logger.Info().Str("loglevel", zerolog.GlobalLevel().String()).Msg("Logging set up")
	return logger
}

// Component derives a child logger tagged with the component name.
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

// Nop is a disabled logger for tests and tools that do not log.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
