// Package primitives defines the fixture and frame data structures of the verifier.
//
// Fixture represents a declarative expectation document: a mapping from symbolic
// display values to segment bit patterns and an ordered sequence of frames that
// the display must go through. Validation ensures required keys are present,
// every frame refers to a known value, and timed frames carry a tolerance.
package primitives

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrMalformedFixture is wrapped by every fixture validation failure.
var ErrMalformedFixture = errors.New("malformed fixture")

// TimingMode selects how a frame's time constraint is interpreted.
type TimingMode string

const (
	// TimingArrival measures time from the previous matched frame to the frame
	// carrying the constraint.
	TimingArrival TimingMode = "arrival"
	// TimingHold treats time as how long the frame stays on the display; it is
	// confirmed by the event that replaces it.
	TimingHold TimingMode = "hold"
)

// MaxSegments is the widest display a Pattern can describe.
const MaxSegments = 64

// Pattern is a segment bit pattern. Bit i is set iff segment i is lit.
// Segments at index MaxSegments and above cannot be represented.
type Pattern uint64

// String formats the pattern as lower-case hex with a 0x prefix.
func (p Pattern) String() string {
	return "0x" + strconv.FormatUint(uint64(p), 16)
}

// ParsePattern parses a base 16 pattern with an optional 0x prefix.
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, errors.New("empty pattern")
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("pattern %q: %w", s, err)
	}
	return Pattern(v), nil
}

// FrameExpectation is one expected display state.
type FrameExpectation struct {
	Value     string   `json:"value" yaml:"value"`
	Cells     []bool   `json:"cells,omitempty" yaml:"cells,omitempty"`         // nil: cells not checked
	Time      *float64 `json:"time,omitempty" yaml:"time,omitempty"`           // seconds
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"` // seconds
}

// Timed reports whether the frame carries a time constraint.
func (f FrameExpectation) Timed() bool {
	return f.Time != nil
}

// Delay returns the expected time constraint as a duration.
func (f FrameExpectation) Delay() time.Duration {
	if f.Time == nil {
		return 0
	}
	return seconds(*f.Time)
}

// Window returns the allowed absolute deviation from Delay.
func (f FrameExpectation) Window() time.Duration {
	if f.Tolerance == nil {
		return 0
	}
	return seconds(*f.Tolerance)
}

// Within reports whether diff lies strictly inside the frame's tolerance window.
func (f FrameExpectation) Within(diff time.Duration) bool {
	delta := diff - f.Delay()
	if delta < 0 {
		delta = -delta
	}
	return delta < f.Window()
}

// Fixture is the complete, validated expectation document.
type Fixture struct {
	Mapping  map[string]Pattern `json:"mapping" yaml:"mapping"`
	Sequence []FrameExpectation `json:"sequence" yaml:"sequence"`
	Timing   TimingMode         `json:"timing,omitempty" yaml:"timing,omitempty"`
}

// Mode returns the effective timing mode.
func (fx *Fixture) Mode() TimingMode {
	if fx.Timing == "" {
		return TimingArrival
	}
	return fx.Timing
}

// Expected returns the pattern a frame must show.
func (fx *Fixture) Expected(f FrameExpectation) Pattern {
	return fx.Mapping[f.Value]
}

// Validate checks the fixture and normalizes expected cell lists:
// - mapping and sequence are present, sequence is non-empty
// - timing is a known mode
// - every value exists in mapping
// - time implies tolerance, neither is negative
func (fx *Fixture) Validate() error {
	if fx.Mapping == nil {
		return fmt.Errorf("%w: mapping is required", ErrMalformedFixture)
	}
	if fx.Sequence == nil {
		return fmt.Errorf("%w: sequence is required", ErrMalformedFixture)
	}
	if len(fx.Sequence) == 0 {
		return fmt.Errorf("%w: sequence cannot be empty", ErrMalformedFixture)
	}
	switch fx.Timing {
	case "", TimingArrival, TimingHold:
	default:
		return fmt.Errorf("%w: unknown timing mode %q", ErrMalformedFixture, fx.Timing)
	}

	for i := range fx.Sequence {
		f := &fx.Sequence[i]
		if _, ok := fx.Mapping[f.Value]; !ok {
			known := maps.Keys(fx.Mapping)
			slices.Sort(known)
			return fmt.Errorf("%w: sequence[%d]: value %q not in mapping %v", ErrMalformedFixture, i, f.Value, known)
		}
		if f.Time != nil {
			if f.Tolerance == nil {
				return fmt.Errorf("%w: sequence[%d]: time without tolerance", ErrMalformedFixture, i)
			}
			if *f.Time < 0 || math.IsNaN(*f.Time) {
				return fmt.Errorf("%w: sequence[%d]: invalid time %v", ErrMalformedFixture, i, *f.Time)
			}
		}
		if f.Tolerance != nil && (*f.Tolerance < 0 || math.IsNaN(*f.Tolerance)) {
			return fmt.Errorf("%w: sequence[%d]: invalid tolerance %v", ErrMalformedFixture, i, *f.Tolerance)
		}
		// Same rule as observed frames: no cells means cell 0.
		if f.Cells != nil && len(f.Cells) == 0 {
			f.Cells = []bool{false}
		}
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
