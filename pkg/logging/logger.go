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
	Level LogLevel `yaml:"level"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `yaml:"pretty"`

	// Output is the writer logs go to (default: os.Stderr).
	Output io.Writer `yaml:"-"`
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
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level. Unknown values map to info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level is one ParseLevel understands. An empty
// level is valid and means info.
func ValidLevel(level LogLevel) bool {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: detail useful when tracing a single export
//   - cache hit/miss per request
//   - retry scheduling (attempt, backoff)
//   - block tree truncation at the depth cap
//
// Info: normal run events
//   - target kind resolved
//   - pagination progress (fetched / kept)
//   - run summary (pages, groups, duration)
//
// Warn: an item or sub-tree was lost, the run continues
//   - page dropped after a processing failure
//   - child page or nested block children could not be fetched
//   - retry attempts exhausted for one call
//
// Error: the run aborts
//   - authentication failure
//   - target not found
//   - pagination batch failed after retries
//
// Context Fields:
//   - component: emitting package (notion-client, export, render, ...)
//   - endpoint: Notion API path
//   - status: HTTP status code
//   - error_class: auth, not_found, rate_limit, server, client, network
//   - page_id / block_id: object being processed
//   - depth: child depth inside a block tree
