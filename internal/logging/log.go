// Package logging provides component-tagged structured logging for the verifier.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Verifier component identifiers.
const (
	ComponentSession  Component = "session"
	ComponentMatcher  Component = "matcher"
	ComponentRegistry Component = "registry"
	ComponentRemote   Component = "remote"
	ComponentDisplay  Component = "display"
)

// Format specifies the output format for logging.
type Format int

// Log format options.
const (
	FormatText Format = iota // Text format (default)
	FormatJSON               // JSON format
)

var (
	// DefaultLogger is the logger used when no logger is configured.
	DefaultLogger *slog.Logger

	// level controls the minimum log level.
	level = new(slog.LevelVar)

	// mu protects logger configuration.
	mu sync.RWMutex
)

func init() {
	level.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetLogLevel sets the minimum level of the default logger.
func SetLogLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(l)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	mu.RLock()
	defer mu.RUnlock()
	return level.Level()
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	DefaultLogger = logger
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr and uses the current log level.
func SetLogFormat(format Format) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatJSON:
		DefaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	default:
		DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}

// NewLogger creates a new text logger writing to w.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: level}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new JSON logger writing to w.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: level}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// For returns logger (or the default logger when nil) tagged with component.
func For(logger *slog.Logger, component Component) *slog.Logger {
	if logger == nil {
		mu.RLock()
		logger = DefaultLogger
		mu.RUnlock()
	}
	return logger.With("component", string(component))
}
