package segverify

import (
	"time"

	"github.com/comalice/segverify/internal/primitives"
)

// SevenSegmentDigits are the patterns of 0-9 with segment a in bit 0 and g in
// bit 6.
var SevenSegmentDigits = [10]Pattern{0x3f, 0x06, 0x5b, 0x4f, 0x66, 0x6d, 0x7d, 0x07, 0x7f, 0x6f}

// FixtureBuilder provides a fluent API for constructing fixtures in code
// instead of writing a fixture document.
type FixtureBuilder struct {
	fx Fixture
}

// FrameBuilder configures the most recently added frame.
type FrameBuilder struct {
	b   *FixtureBuilder
	idx int
}

// NewFixtureBuilder creates a builder with an empty mapping.
func NewFixtureBuilder() *FixtureBuilder {
	return &FixtureBuilder{fx: Fixture{Mapping: make(map[string]Pattern)}}
}

// Map names a segment pattern.
func (b *FixtureBuilder) Map(value string, p Pattern) *FixtureBuilder {
	b.fx.Mapping[value] = p
	return b
}

// Digits maps "0" through "9" to their seven-segment patterns.
func (b *FixtureBuilder) Digits() *FixtureBuilder {
	for i, p := range SevenSegmentDigits {
		b.fx.Mapping[string(rune('0'+i))] = p
	}
	return b
}

// Timing selects how frame times are measured.
func (b *FixtureBuilder) Timing(mode TimingMode) *FixtureBuilder {
	b.fx.Timing = mode
	return b
}

// Frame appends an expected frame showing value.
func (b *FixtureBuilder) Frame(value string) *FrameBuilder {
	b.fx.Sequence = append(b.fx.Sequence, primitives.FrameExpectation{Value: value})
	return &FrameBuilder{b: b, idx: len(b.fx.Sequence) - 1}
}

// Build validates and returns the fixture. The builder may be reused; later
// calls do not affect fixtures already built.
func (b *FixtureBuilder) Build() (*Fixture, error) {
	fx := &Fixture{
		Mapping:  make(map[string]Pattern, len(b.fx.Mapping)),
		Sequence: make([]FrameExpectation, len(b.fx.Sequence)),
		Timing:   b.fx.Timing,
	}
	for k, v := range b.fx.Mapping {
		fx.Mapping[k] = v
	}
	copy(fx.Sequence, b.fx.Sequence)
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return fx, nil
}

// On sets the cells the frame must be shown on.
func (f *FrameBuilder) On(cells ...bool) *FrameBuilder {
	f.frame().Cells = append([]bool{}, cells...)
	return f
}

// After requires the frame to arrive d after the previous one, give or take
// tolerance.
func (f *FrameBuilder) After(d, tolerance time.Duration) *FrameBuilder {
	secs, tol := d.Seconds(), tolerance.Seconds()
	fr := f.frame()
	fr.Time, fr.Tolerance = &secs, &tol
	return f
}

// Frame appends the next expected frame.
func (f *FrameBuilder) Frame(value string) *FrameBuilder {
	return f.b.Frame(value)
}

// Build validates and returns the fixture.
func (f *FrameBuilder) Build() (*Fixture, error) {
	return f.b.Build()
}

func (f *FrameBuilder) frame() *FrameExpectation {
	return &f.b.fx.Sequence[f.idx]
}
