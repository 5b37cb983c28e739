package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/comalice/segverify/internal/logging"
)

// Registry owns named sessions. Callers hold the registry and address
// sessions by name; there is no package-level table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	resolver Resolver
	opts     []Option
	log      *slog.Logger
}

// NewRegistry creates an empty registry. opts are applied to every session
// created by Register, before its name and timeout.
func NewRegistry(resolver Resolver, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		resolver: resolver,
		opts:     opts,
		log:      logging.For(logger, logging.ComponentRegistry),
	}
}

// Register resolves peripheral, starts a session on it and stores it under
// name. A zero timeout keeps the session default.
func (r *Registry) Register(name, peripheral string, timeout time.Duration) (*Session, error) {
	if r.resolver == nil {
		return nil, fmt.Errorf("%w: %s: no resolver configured", ErrUnresolvedPeripheral, peripheral)
	}
	display, clock, err := r.resolver.Resolve(peripheral)
	if err != nil {
		if errors.Is(err, ErrUnresolvedPeripheral) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedPeripheral, peripheral, err)
	}

	opts := append(slices.Clone(r.opts), WithName(name))
	if timeout > 0 {
		opts = append(opts, WithDefaultTimeout(timeout))
	}
	s := NewSession(display, clock, opts...)
	if err := s.Start(); err != nil {
		return nil, fmt.Errorf("start session %q: %w", name, err)
	}
	r.Add(name, s)
	r.log.Info("session registered", "name", name, "peripheral", peripheral, "timeout", s.DefaultTimeout())
	return s, nil
}

// Add stores s under name. A session previously stored under the same name is
// stopped and replaced.
func (r *Registry) Add(name string, s *Session) {
	r.mu.Lock()
	old, ok := r.sessions[name]
	r.sessions[name] = s
	r.mu.Unlock()

	if ok && old != s {
		r.log.Info("session replaced", "name", name)
		if err := old.Stop(); err != nil {
			r.log.Error("stop replaced session", "name", name, "error", err)
		}
	}
}

// Get returns the session stored under name.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Names returns the registered session names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := maps.Keys(r.sessions)
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// WaitForSequence waits on the session stored under name.
func (r *Registry) WaitForSequence(ctx context.Context, name, path string, opts ...WaitOption) (Result, error) {
	s, ok := r.Get(name)
	if !ok {
		r.log.Error("can't find session", "name", name)
		return Result{Fixture: path}, fmt.Errorf("%w: %q", ErrUnknownSession, name)
	}
	return s.WaitForSequence(ctx, path, opts...)
}

// Close stops and removes every session.
func (r *Registry) Close() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for name, s := range sessions {
		if err := s.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
