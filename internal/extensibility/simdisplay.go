// Package extensibility provides the pluggable peripheral side of the verifier:
// an in-memory segment display, a manual virtual clock, a dotted-name
// peripheral resolver and a scripted frame player.
package extensibility

import (
	"log/slog"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/logging"
	"github.com/comalice/segverify/internal/primitives"
)

// SimDisplay is an in-memory multi-segment display. GPIO pins
// 0..segments-1 drive segments and the following cells pins select cells.
//
// Subscribers are notified synchronously, in order, whenever the state
// actually changes. Callbacks must not call back into the display's setters.
type SimDisplay struct {
	mu       sync.Mutex // guards state and serializes notifications
	segments []bool
	cells    []bool

	subMu  sync.RWMutex
	subs   map[int]core.StateChangedFunc
	order  []int
	nextID int

	log *slog.Logger
}

// NewSimDisplay creates a display with the given number of segments and
// cells. A display with zero cells reports an empty cell list. The segment
// count is capped at primitives.MaxSegments.
func NewSimDisplay(segments, cells int, logger *slog.Logger) *SimDisplay {
	log := logging.For(logger, logging.ComponentDisplay)
	if segments < 0 {
		segments = 0
	}
	if segments > primitives.MaxSegments {
		log.Warn("segment count capped", "requested", segments, "max", primitives.MaxSegments)
		segments = primitives.MaxSegments
	}
	if cells < 0 {
		cells = 0
	}
	return &SimDisplay{
		segments: make([]bool, segments),
		cells:    make([]bool, cells),
		subs:     make(map[int]core.StateChangedFunc),
		log:      log,
	}
}

// NumberOfSegments returns the segment count.
func (d *SimDisplay) NumberOfSegments() int { return len(d.segments) }

// NumberOfCells returns the cell count.
func (d *SimDisplay) NumberOfCells() int { return len(d.cells) }

// Subscribe implements core.Display.
func (d *SimDisplay) Subscribe(fn core.StateChangedFunc) func() {
	d.subMu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.order = append(d.order, id)
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			defer d.subMu.Unlock()
			delete(d.subs, id)
			if i := slices.Index(d.order, id); i >= 0 {
				d.order = slices.Delete(d.order, i, i+1)
			}
		})
	}
}

// Segments returns a copy of the lit segments.
func (d *SimDisplay) Segments() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.segments)
}

// Cells returns a copy of the active cells.
func (d *SimDisplay) Cells() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.cells)
}

// SetState replaces the whole display state. Arrays longer than the display
// are truncated, shorter ones are padded with false.
func (d *SimDisplay) SetState(cells, segments []bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nextCells := fit(cells, len(d.cells))
	nextSegments := fit(segments, len(d.segments))
	if slices.Equal(nextCells, d.cells) && slices.Equal(nextSegments, d.segments) {
		return
	}
	d.cells = nextCells
	d.segments = nextSegments
	d.notifyLocked()
}

// Show displays pattern p on the given cells.
func (d *SimDisplay) Show(p primitives.Pattern, cells ...bool) {
	segments := make([]bool, len(d.segments))
	for i := range segments {
		segments[i] = p&(1<<uint(i)) != 0
	}
	d.SetState(cells, segments)
}

// SetSegment sets a single segment.
func (d *SimDisplay) SetSegment(n int, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || n >= len(d.segments) || d.segments[n] == on {
		return
	}
	d.segments = slices.Clone(d.segments)
	d.segments[n] = on
	d.notifyLocked()
}

// SetCell sets a single cell select line.
func (d *SimDisplay) SetCell(n int, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || n >= len(d.cells) || d.cells[n] == on {
		return
	}
	d.cells = slices.Clone(d.cells)
	d.cells[n] = on
	d.notifyLocked()
}

// OnGPIO routes a pin change to a segment or a cell. Pins past the last cell
// are ignored.
func (d *SimDisplay) OnGPIO(pin int, on bool) {
	switch {
	case pin < 0:
	case pin < len(d.segments):
		d.SetSegment(pin, on)
		return
	case pin < len(d.segments)+len(d.cells):
		d.SetCell(pin-len(d.segments), on)
		return
	}
	d.log.Debug("gpio ignored", "pin", pin, "value", on)
}

func (d *SimDisplay) notifyLocked() {
	d.subMu.RLock()
	fns := make([]core.StateChangedFunc, 0, len(d.order))
	for _, id := range d.order {
		fns = append(fns, d.subs[id])
	}
	d.subMu.RUnlock()

	d.log.Debug("state changed", "cells", d.cells, "segments", primitives.PatternOf(d.segments).String())
	for _, fn := range fns {
		fn(slices.Clone(d.cells), slices.Clone(d.segments))
	}
}

func fit(src []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, src)
	return out
}
