// Package segverify waits for an emulated segment display to show an expected
// sequence of frames, each optionally constrained to arrive a given virtual
// time after the previous one.
//
// A Session subscribes to one display. WaitForSequence loads a fixture file,
// arms the matcher and blocks until the whole sequence has been seen or the
// timeout elapses. A failed wait reports the furthest point the display
// reached and what it showed instead.
//
//	s := segverify.NewSession(display, clock, segverify.WithName("lcd"))
//	if err := s.Start(); err != nil { ... }
//	defer s.Stop()
//	res, err := s.WaitForSequence(ctx, "countdown.yaml", segverify.WithTimeout(5*time.Second))
//	if err == nil {
//		err = res.Err()
//	}
package segverify

import (
	"log/slog"
	"time"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/extensibility"
	"github.com/comalice/segverify/internal/logging"
	"github.com/comalice/segverify/internal/primitives"
	"github.com/comalice/segverify/internal/production"
)

type (
	Display          = core.Display
	Clock            = core.Clock
	Resolver         = core.Resolver
	Publisher        = core.Publisher
	Reporter         = core.Reporter
	StateChangedFunc = core.StateChangedFunc

	Session      = core.Session
	Registry     = core.Registry
	Config       = core.Config
	Option       = core.Option
	WaitOption   = core.WaitOption
	Result       = core.Result
	Status       = core.Status
	Mismatch     = core.Mismatch
	Progress     = core.Progress
	TimeoutError = core.TimeoutError

	Fixture          = primitives.Fixture
	FrameExpectation = primitives.FrameExpectation
	Pattern          = primitives.Pattern
	TimingMode       = primitives.TimingMode

	SimDisplay     = extensibility.SimDisplay
	ManualClock    = extensibility.ManualClock
	PeripheralTree = extensibility.PeripheralTree
	SessionConfig  = production.SessionConfig
)

const (
	StatusTimeout = core.StatusTimeout
	StatusSuccess = core.StatusSuccess

	TimingArrival = primitives.TimingArrival
	TimingHold    = primitives.TimingHold

	DefaultTimeout = core.DefaultTimeout
)

var (
	ErrTimeout              = core.ErrTimeout
	ErrUnresolvedPeripheral = core.ErrUnresolvedPeripheral
	ErrUnknownSession       = core.ErrUnknownSession
	ErrWaitInProgress       = core.ErrWaitInProgress
	ErrNotStarted           = core.ErrNotStarted
	ErrMalformedFixture     = primitives.ErrMalformedFixture
)

var (
	WithConfig         = core.WithConfig
	WithName           = core.WithName
	WithDefaultTimeout = core.WithDefaultTimeout
	WithLogger         = core.WithLogger
	WithPublisher      = core.WithPublisher
	WithReporter       = core.WithReporter
	WithTimeout        = core.WithTimeout
)

// NewSession creates a session watching display. A nil clock is taken from
// the display when it implements Clock.
func NewSession(display Display, clock Clock, opts ...Option) *Session {
	return core.NewSession(display, clock, opts...)
}

// NewRegistry creates an empty session registry resolving peripherals with r.
func NewRegistry(r Resolver, logger *slog.Logger, opts ...Option) *Registry {
	return core.NewRegistry(r, logger, opts...)
}

// LoadFixture reads and validates a JSON or YAML fixture.
func LoadFixture(path string) (*Fixture, error) {
	return primitives.LoadFixture(path)
}

// LoadSessionConfig reads a session configuration document.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	return production.LoadSessionConfig(path)
}

// NewSimDisplay creates an in-memory display.
func NewSimDisplay(segments, cells int, logger *slog.Logger) *SimDisplay {
	return extensibility.NewSimDisplay(segments, cells, logger)
}

// NewManualClock creates a virtual clock starting at start.
func NewManualClock(start time.Duration) *ManualClock {
	return extensibility.NewManualClock(start)
}

// NewPeripheralTree creates an empty peripheral resolver.
func NewPeripheralTree() *PeripheralTree {
	return extensibility.NewPeripheralTree()
}

// SetLogLevel sets the level of the package default logger.
func SetLogLevel(level slog.Level) {
	logging.SetLogLevel(level)
}
