package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/comalice/segverify/internal/primitives"
)

var (
	ErrTimeout              = errors.New("expected sequence was not found")
	ErrUnresolvedPeripheral = errors.New("peripheral not found")
	ErrUnknownSession       = errors.New("unknown session")
	ErrWaitInProgress       = errors.New("wait already in progress")
	ErrNotStarted           = errors.New("session not started")
	ErrNilDisplay           = errors.New("nil display")
	ErrNilClock             = errors.New("nil clock")
)

// Status is the outcome of a wait.
type Status int

const (
	StatusTimeout Status = iota
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "success":
		*s = StatusSuccess
	case "timeout":
		*s = StatusTimeout
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Mismatch is the diagnostic recorded for a failed frame.
type Mismatch struct {
	Index            int                         `json:"index" yaml:"index"`
	Expected         primitives.FrameExpectation `json:"expected" yaml:"expected"`
	ExpectedSegments primitives.Pattern          `json:"expected_segments" yaml:"expected_segments"`
	ObservedSegments primitives.Pattern          `json:"observed_segments" yaml:"observed_segments"`
	ObservedCells    []bool                      `json:"observed_cells" yaml:"observed_cells"`
	Time             time.Duration               `json:"time" yaml:"time"` // virtual time since the reference event
	At               time.Duration               `json:"at" yaml:"at"`     // virtual time of the failing event
}

func (m *Mismatch) String() string {
	if m == nil {
		return "no events observed"
	}
	s := fmt.Sprintf("frame %d: expected %q (%s", m.Index, m.Expected.Value, m.ExpectedSegments)
	if m.Expected.Cells != nil {
		s += fmt.Sprintf(" cells %v", m.Expected.Cells)
	}
	if m.Expected.Timed() {
		s += fmt.Sprintf(" after %v±%v", m.Expected.Delay(), m.Expected.Window())
	}
	return s + fmt.Sprintf("), observed %s cells %v after %v", m.ObservedSegments, m.ObservedCells, m.Time)
}

// Result is what a wait returns. Diagnostic is nil on success and on a
// timeout during which no frame failed.
type Result struct {
	Status     Status    `json:"status" yaml:"status"`
	Fixture    string    `json:"fixture" yaml:"fixture"`
	Diagnostic *Mismatch `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	Events     int       `json:"events" yaml:"events"`     // notifications evaluated during the wait
	Progress   int       `json:"progress" yaml:"progress"` // progress index when the wait ended
}

// Success reports whether the sequence was matched.
func (r Result) Success() bool {
	return r.Status == StatusSuccess
}

// Err returns nil on success, otherwise a *TimeoutError.
func (r Result) Err() error {
	if r.Success() {
		return nil
	}
	return &TimeoutError{Fixture: r.Fixture, Diagnostic: r.Diagnostic, Events: r.Events}
}

// TimeoutError carries the diagnostic of a failed wait. It wraps ErrTimeout.
type TimeoutError struct {
	Fixture    string
	Diagnostic *Mismatch
	Events     int
}

func (e *TimeoutError) Error() string {
	if e.Events == 0 {
		return fmt.Sprintf("%s: %v: no events observed", e.Fixture, ErrTimeout)
	}
	if e.Diagnostic == nil {
		return fmt.Sprintf("%s: %v: %d events, no mismatch recorded", e.Fixture, ErrTimeout, e.Events)
	}
	return fmt.Sprintf("%s: %v: %s", e.Fixture, ErrTimeout, e.Diagnostic)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
