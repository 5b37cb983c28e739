// Options for configuring Session instances.
package core

import (
	"log/slog"
	"time"
)

// DefaultTimeout is used when a session is created without one.
const DefaultTimeout = 10 * time.Second

// Config holds session settings. Zero fields take defaults.
type Config struct {
	Name           string        `json:"name" yaml:"name"`
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`
}

// Option applies configuration to Session via functional options pattern.
type Option func(*Session)

// WithConfig replaces the session's Config.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithName sets the name used in logs, progress events and reports.
func WithName(name string) Option {
	return func(s *Session) {
		s.cfg.Name = name
	}
}

// WithDefaultTimeout sets the timeout used when a wait has no override.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.cfg.DefaultTimeout = d
	}
}

// WithLogger configures the Session with a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithPublisher configures the Session with a Publisher for matcher progress.
func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

// WithReporter configures the Session with a Reporter for failed waits.
func WithReporter(r Reporter) Option {
	return func(s *Session) {
		s.reporter = r
	}
}

// WaitOption adjusts a single wait.
type WaitOption func(*waitConfig)

type waitConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the session's default timeout for one wait.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}
