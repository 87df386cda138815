// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Every line carries bootID so runs
// can be told apart after a power cycle.
func Setup(level string, useJSON, colors bool, bootID string) {
	setup(os.Stderr, level, useJSON, colors, bootID)
}

func setup(w io.Writer, level string, useJSON, colors bool, bootID string) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if useJSON {
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}
	ctx := logger.With().Timestamp()
	if bootID != "" {
		ctx = ctx.Str("boot_id", bootID)
	}
	log.Logger = ctx.Logger()

	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewBootID returns a random identifier for this run.
func NewBootID() string {
	return uuid.NewString()
}
