// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
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

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
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

// WithRequestID returns a child logger tagged with a request ID.
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Request flow (method, redacted URL)
//   - Cursor pages (page number, item count, before cursor)
//   - Worker pool lifecycle
//   - Skipped probability items with unrecognized shape
//
// Info: Normal operation events
//   - Batch fetch summaries without failures
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Per-item fetch failures in a batch (item dropped)
//   - Batch fetch summaries with failures
//   - Request budget throttling
//   - Non-success API responses
//
// Error: Error conditions requiring attention
//   - Network failures
//   - Critical request budget blocks
//   - Redis unavailability
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting component (manifold-client, batch-fetcher, cursor, proxy)
//   - endpoint: API endpoint label (first path segment)
//   - id: Market ID or username of a failed batch item
//   - page: Cursor page number (1-based)
//   - status: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network)
//   - requests_remaining: Requests left in the current budget window
//   - request_id: Proxy request ID (X-Request-ID)
