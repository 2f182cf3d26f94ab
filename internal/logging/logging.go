// Package logging builds the supervisor's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler.
type Format string

const (
	// FormatConsole sends records through the line processor so they share
	// the child's output format.
	FormatConsole Format = "console"
	FormatText    Format = "text"
	FormatJSON    Format = "json"
)

// ComponentKey names the attribute used as the console source.
const ComponentKey = "component"

// Config configures New.
type Config struct {
	// Level is debug, info, warn or error. Default: info
	Level string
	// Format defaults to console when an Emitter is set, otherwise text.
	Format Format
	// Output receives text and json records. Default: os.Stderr
	Output io.Writer
	// Emitter receives console records.
	Emitter Emitter
}

// DefaultConfig returns info level console logging.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: FormatConsole, Output: os.Stderr}
}

// FromEnv reads TENDER_DEBUG, TENDER_LOG_LEVEL (over LOG_LEVEL) and
// LOG_FORMAT on top of DefaultConfig.
func FromEnv() *Config {
	cfg := DefaultConfig()

	debug := os.Getenv("TENDER_DEBUG")
	if debug == "true" || debug == "1" {
		cfg.Level = "debug"
	} else if level := os.Getenv("TENDER_LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	} else if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}
	return cfg
}

// New creates a logger for cfg.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch {
	case cfg.Format == FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case cfg.Format == FormatText, cfg.Emitter == nil:
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = NewConsoleHandler(cfg.Emitter, opts.Level)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent tags logger so console records use component as source.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(ComponentKey, component)
}
