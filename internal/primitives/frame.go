package primitives

import (
	"time"

	"golang.org/x/exp/slices"
)

// Frame is one observed display state, built from a single state-change
// notification. Frames are values; consumers MUST NOT modify Cells.
type Frame struct {
	Cells    []bool
	Segments Pattern
	At       time.Duration // virtual time of the notification
}

// NewFrame builds a Frame from raw notification arrays.
//
// A display that does not multiplex cells reports an empty cell list; it is
// normalized to a single inactive cell ([false]) so every comparison sees the
// same shape.
func NewFrame(cells, segments []bool, at time.Duration) Frame {
	c := make([]bool, len(cells))
	copy(c, cells)
	if len(c) == 0 {
		c = []bool{false}
	}
	return Frame{
		Cells:    c,
		Segments: PatternOf(segments),
		At:       at,
	}
}

// PatternOf packs a segment array into a Pattern. Segments past MaxSegments
// are ignored.
func PatternOf(segments []bool) Pattern {
	var p Pattern
	for i, on := range segments {
		if on && i < MaxSegments {
			p |= 1 << uint(i)
		}
	}
	return p
}

// CellsMatch reports whether the frame shows the given cells. A nil want
// matches any cells.
func (f Frame) CellsMatch(want []bool) bool {
	if want == nil {
		return true
	}
	return slices.Equal(f.Cells, want)
}
