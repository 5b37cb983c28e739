package core

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/comalice/segverify/internal/logging"
	"github.com/comalice/segverify/internal/primitives"
)

// MatcherState is a copy of the matcher's progress.
type MatcherState struct {
	Armed          bool
	Success        bool
	Matched        int
	Events         int
	FirstUnmatched *Mismatch
}

// Matcher consumes observed frames one at a time and tracks how far into the
// fixture's sequence the display has progressed.
//
// All fields are guarded by mu. OnEvent runs on the display's notification
// goroutine while Arm and Disarm run on the waiting goroutine.
type Matcher struct {
	mu sync.Mutex

	fixture        *primitives.Fixture
	matched        int
	lastEvent      time.Duration
	hasLastEvent   bool
	pending        *primitives.FrameExpectation
	firstUnmatched *Mismatch
	success        bool
	armed          bool
	events         int
	done           chan struct{}

	// outbox collects progress under mu; it is flushed after unlock.
	outbox  []Progress
	observe func(Progress)
	name    string
	log     *slog.Logger
}

// NewMatcher creates a disarmed matcher. observe, if non-nil, is called for
// every progress step outside the matcher lock.
func NewMatcher(name string, logger *slog.Logger, observe func(Progress)) *Matcher {
	return &Matcher{
		name:    name,
		log:     logging.For(logger, logging.ComponentMatcher),
		observe: observe,
	}
}

// Arm resets all state for fx and returns a channel that is closed once the
// full sequence has been matched.
func (m *Matcher) Arm(fx *primitives.Fixture) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fixture = fx
	m.matched = 0
	m.lastEvent = 0
	m.hasLastEvent = false
	m.pending = nil
	m.firstUnmatched = nil
	m.success = false
	m.events = 0
	m.outbox = nil
	m.done = make(chan struct{})
	m.armed = true
	return m.done
}

// Disarm stops evaluating events and returns the final state. Events that
// arrive afterwards are discarded until the next Arm.
func (m *Matcher) Disarm() MatcherState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
	return m.stateLocked()
}

// State returns a copy of the current progress.
func (m *Matcher) State() MatcherState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Matcher) stateLocked() MatcherState {
	st := MatcherState{
		Armed:   m.armed,
		Success: m.success,
		Matched: m.matched,
		Events:  m.events,
	}
	if m.firstUnmatched != nil {
		mm := *m.firstUnmatched
		st.FirstUnmatched = &mm
	}
	return st
}

// OnEvent evaluates one observed frame. It is safe to call from any goroutine.
func (m *Matcher) OnEvent(frame primitives.Frame) {
	m.evaluate(func() primitives.Frame { return frame })
}

// Observe builds a frame from a raw notification and evaluates it. The frame
// is stamped with clock inside the matcher lock, so concurrent notifications
// are evaluated in timestamp order.
func (m *Matcher) Observe(cells, segments []bool, clock Clock) {
	m.evaluate(func() primitives.Frame {
		return primitives.NewFrame(cells, segments, clock.Elapsed())
	})
}

func (m *Matcher) evaluate(next func() primitives.Frame) {
	m.mu.Lock()
	m.step(next())
	out := m.outbox
	m.outbox = nil
	m.mu.Unlock()

	if m.observe == nil {
		return
	}
	for _, p := range out {
		m.observe(p)
	}
}

func (m *Matcher) step(frame primitives.Frame) {
	if !m.armed || m.success {
		return
	}
	m.events++

	var diff time.Duration
	if m.hasLastEvent {
		diff = frame.At - m.lastEvent
	}
	m.log.Debug("frame observed",
		"session", m.name,
		"index", m.matched,
		"segments", frame.Segments.String(),
		"cells", frame.Cells,
		"diff", diff)

	// A timed frame from the previous event is confirmed by this one.
	if m.pending != nil {
		pending := *m.pending
		m.pending = nil
		if pending.Within(diff) {
			m.advance(frame)
		} else {
			m.fail(frame, diff, m.fixture.Expected(pending), []bool{})
		}
	}
	if m.success {
		return
	}

	exp := m.fixture.Sequence[m.matched]
	if !frame.CellsMatch(exp.Cells) {
		m.fail(frame, diff, frame.Segments, frame.Cells)
		return
	}
	if m.fixture.Expected(exp) != frame.Segments {
		m.fail(frame, diff, frame.Segments, frame.Cells)
		return
	}

	switch m.fixture.Mode() {
	case primitives.TimingHold:
		// The last frame needs no confirmation.
		if exp.Timed() && m.matched+1 < len(m.fixture.Sequence) {
			m.pending = &exp
			m.lastEvent = frame.At
			m.hasLastEvent = true
			m.emit(Progress{Kind: ProgressPending, Index: m.matched, At: frame.At})
			return
		}
		m.advance(frame)
	default:
		// The first frame of a run has no matched predecessor to measure from.
		if exp.Timed() && m.matched > 0 && !exp.Within(diff) {
			m.fail(frame, diff, frame.Segments, frame.Cells)
			return
		}
		m.lastEvent = frame.At
		m.hasLastEvent = true
		m.advance(frame)
	}
}

func (m *Matcher) advance(frame primitives.Frame) {
	if m.matched+1 >= len(m.fixture.Sequence) {
		m.success = true
		m.pending = nil
		close(m.done)
		m.log.Debug("sequence matched", "session", m.name, "frames", len(m.fixture.Sequence))
		m.emit(Progress{Kind: ProgressCompleted, Index: len(m.fixture.Sequence), At: frame.At})
		return
	}
	m.matched++
	m.pending = nil
	m.emit(Progress{Kind: ProgressAdvanced, Index: m.matched, At: frame.At})
}

// fail records the furthest mismatch and restarts from the first frame. The
// event stream is not rewound.
func (m *Matcher) fail(frame primitives.Frame, diff time.Duration, segments primitives.Pattern, cells []bool) {
	exp := m.fixture.Sequence[m.matched]
	mm := &Mismatch{
		Index:            m.matched,
		Expected:         exp,
		ExpectedSegments: m.fixture.Expected(exp),
		ObservedSegments: segments,
		ObservedCells:    slices.Clone(cells),
		Time:             diff,
		At:               frame.At,
	}
	if m.firstUnmatched == nil || m.firstUnmatched.Index < m.matched {
		m.firstUnmatched = mm
	}
	if m.matched > 0 {
		m.log.Debug("progress reset", "session", m.name, "mismatch", mm.String())
	}
	m.matched = 0
	m.pending = nil
	m.emit(Progress{Kind: ProgressReset, Index: 0, At: frame.At, Mismatch: mm})
}

func (m *Matcher) emit(p Progress) {
	if m.observe == nil {
		return
	}
	p.Session = m.name
	m.outbox = append(m.outbox, p)
}
