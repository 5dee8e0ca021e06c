// Package logging configures zerolog for the client and its front ends.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelTrace logs everything, including per-call payload sizes.
	LevelTrace LogLevel = "trace"

	// LevelDebug logs call ids, supersessions and cache decisions.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs start-up and page/detail summaries.
	LevelInfo LogLevel = "info"

	// LevelWarn logs degraded results (placeholders, default colours).
	LevelWarn LogLevel = "warn"

	// LevelError logs fatal chain failures only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: JSON).
	Pretty bool

	// Output is the writer logs go to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name.
func ParseLevel(s string) (LogLevel, error) {
	switch level := LogLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError:
		return level, nil
	case "warning":
		return LevelWarn, nil
	case "":
		return LevelInfo, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level; unknown names mean info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
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

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: what a single call did
//   - call_id of every executor call, superseded and cancelled calls
//   - cache decisions (conditional request sent, 304 served from cache)
//   - skipped evolution chain, extracted colour
//
// Info: process level events
//   - server startup/shutdown
//   - batch fetch progress
//
// Warn: degraded but usable results
//   - placeholder substituted for a failed list item
//   - colour extraction failed, defaults used
//   - non-2xx responses and 401/403 (status hook)
//   - fair-use throttling, cache or Redis errors
//
// Error: results the caller cannot use
//   - fatal detail chain failure
//   - failed list call
//   - transport failures
//
// Context Fields:
//   - component: emitting package (pokeapi-transport, request-executor, detail-loader, enricher)
//   - call_id: uuid of one executor call
//   - binding: executor name (pokemon, species, evolution-chain, list)
//   - endpoint: first path segment below the API root
//   - subject: Pokémon name or id of a detail load
//   - step: failed chain step
//   - status: HTTP status code
