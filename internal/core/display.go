// Package core provides the runtime tier of the verifier: the sequence matcher,
// the session that feeds it from a display subscription, and the registry of
// named sessions.
// Dependencies: internal/primitives, internal/logging
//go:generate go test ./... -race

package core

import (
	"context"
	"time"
)

// Pluggable component interfaces.

// StateChangedFunc receives one display notification: the active cells and
// the lit segments, in pin order.
type StateChangedFunc func(cells, segments []bool)

// Display is the notification side of a segment display peripheral.
type Display interface {
	// Subscribe registers fn for every state change and returns a function
	// that removes the subscription. The returned function must be safe to
	// call more than once.
	Subscribe(fn StateChangedFunc) (unsubscribe func())
}

// Clock reports the host's virtual time. It never decreases.
type Clock interface {
	Elapsed() time.Duration
}

// Resolver finds a display and its clock by dotted peripheral name
// (e.g. "sysbus.gpio.display").
type Resolver interface {
	Resolve(path string) (Display, Clock, error)
}

// Publisher receives matcher progress as it happens.
type Publisher interface {
	Publish(ctx context.Context, p Progress) error
	Close() error
}

// Reporter receives every wait that ended without matching the sequence.
type Reporter interface {
	Report(r Result) error
}

// ProgressKind classifies a Progress event.
type ProgressKind string

const (
	ProgressAdvanced  ProgressKind = "advanced"
	ProgressPending   ProgressKind = "pending" // timed frame waiting for confirmation
	ProgressReset     ProgressKind = "reset"
	ProgressCompleted ProgressKind = "completed"
	ProgressTimeout   ProgressKind = "timeout"
)

// Progress is one matcher step, published outside the matcher lock.
type Progress struct {
	Session  string        `json:"session" yaml:"session"`
	Kind     ProgressKind  `json:"kind" yaml:"kind"`
	Index    int           `json:"index" yaml:"index"` // progress index after the step
	At       time.Duration `json:"at" yaml:"at"`
	Mismatch *Mismatch     `json:"mismatch,omitempty" yaml:"mismatch,omitempty"`
}
