package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/segverify/internal/logging"
	"github.com/comalice/segverify/internal/primitives"
)

// Session watches one display and answers WaitForSequence calls against it.
// The subscription lives from Start to Stop; each wait arms the matcher with
// a freshly loaded fixture. Only one wait may be pending at a time.
type Session struct {
	cfg       Config
	display   Display
	clock     Clock
	logger    *slog.Logger
	log       *slog.Logger
	publisher Publisher
	reporter  Reporter
	matcher   *Matcher

	mu          sync.Mutex // guards the fields below
	started     bool
	waiting     bool
	unsubscribe func()
}

// NewSession creates a session for display. When clock is nil and display
// implements Clock, the display is used as the clock.
func NewSession(display Display, clock Clock, opts ...Option) *Session {
	s := &Session{
		display: display,
		clock:   clock,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.DefaultTimeout <= 0 {
		s.cfg.DefaultTimeout = DefaultTimeout
	}
	if s.clock == nil {
		if c, ok := display.(Clock); ok {
			s.clock = c
		}
	}
	s.log = logging.For(s.logger, logging.ComponentSession).With("session", s.cfg.Name)
	s.matcher = NewMatcher(s.cfg.Name, s.logger, s.publish)
	return s
}

// Name returns the configured session name.
func (s *Session) Name() string {
	return s.cfg.Name
}

// DefaultTimeout returns the timeout used by waits without an override.
func (s *Session) DefaultTimeout() time.Duration {
	return s.cfg.DefaultTimeout
}

// Start subscribes to the display. A stopped session may be started again.
// Idempotent: safe to call multiple times (no-op while started).
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.display == nil {
		return ErrNilDisplay
	}
	if s.clock == nil {
		return ErrNilClock
	}
	if s.started {
		return nil
	}
	s.unsubscribe = s.display.Subscribe(s.handle)
	s.started = true
	s.log.Debug("subscribed", "default_timeout", s.cfg.DefaultTimeout)
	return nil
}

// Stop removes the display subscription.
// Safe to call multiple times.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.log.Debug("unsubscribed")
	return nil
}

// handle is the display callback; it may run on any goroutine.
func (s *Session) handle(cells, segments []bool) {
	s.matcher.Observe(cells, segments, s.clock)
}

// WaitForSequence loads the fixture at path and blocks until the display has
// shown the whole sequence, the timeout elapses or ctx is done.
//
// Fixture errors are returned before any matching starts. A timeout is not an
// error: it is reported through Result (see Result.Err). Context cancellation
// returns the timeout-shaped Result together with ctx.Err().
func (s *Session) WaitForSequence(ctx context.Context, path string, opts ...WaitOption) (Result, error) {
	if err := s.begin(); err != nil {
		return Result{Fixture: path}, err
	}
	defer s.end()

	fx, err := primitives.LoadFixture(path)
	if err != nil {
		return Result{Fixture: path}, err
	}
	return s.wait(ctx, path, fx, opts)
}

// WaitForFixture is WaitForSequence for a fixture that is already loaded.
func (s *Session) WaitForFixture(ctx context.Context, fx *primitives.Fixture, opts ...WaitOption) (Result, error) {
	if err := s.begin(); err != nil {
		return Result{}, err
	}
	defer s.end()

	if err := fx.Validate(); err != nil {
		return Result{}, err
	}
	return s.wait(ctx, "", fx, opts)
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	if s.waiting {
		return ErrWaitInProgress
	}
	s.waiting = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.waiting = false
	s.mu.Unlock()
}

func (s *Session) wait(ctx context.Context, name string, fx *primitives.Fixture, opts []WaitOption) (Result, error) {
	wc := waitConfig{timeout: s.cfg.DefaultTimeout}
	for _, opt := range opts {
		opt(&wc)
	}

	done := s.matcher.Arm(fx)
	timer := time.NewTimer(wc.timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	st := s.matcher.Disarm()

	res := Result{
		Fixture:  name,
		Events:   st.Events,
		Progress: st.Matched,
	}
	if st.Success {
		res.Status = StatusSuccess
		res.Progress = len(fx.Sequence)
		s.log.Debug("sequence found", "fixture", name, "events", st.Events)
		return res, nil
	}

	res.Status = StatusTimeout
	res.Diagnostic = st.FirstUnmatched
	s.log.Warn("expected sequence was not found",
		"fixture", name,
		"timeout", wc.timeout,
		"events", st.Events,
		"diagnostic", res.Diagnostic.String())
	s.publish(Progress{Session: s.cfg.Name, Kind: ProgressTimeout, Index: st.Matched, Mismatch: st.FirstUnmatched})
	if s.reporter != nil {
		if err := s.reporter.Report(res); err != nil {
			s.log.Error("report failed", "error", err)
		}
	}
	return res, waitErr
}

func (s *Session) publish(p Progress) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), p); err != nil {
		s.log.Warn("publish failed", "kind", p.Kind, "error", err)
	}
}
