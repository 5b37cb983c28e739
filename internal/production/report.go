package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/primitives"
)

// Segment bit order: a (top) through g (middle), then the decimal point.
const (
	segA = 1 << iota
	segB
	segC
	segD
	segE
	segF
	segG
	segDP
)

// RenderPattern draws a seven-segment pattern as three text rows.
func RenderPattern(p primitives.Pattern) [3]string {
	on := func(bit primitives.Pattern, s string) string {
		if p&bit != 0 {
			return s
		}
		return " "
	}
	return [3]string{
		" " + on(segA, "_") + "  ",
		on(segF, "|") + on(segG, "_") + on(segB, "|") + " ",
		on(segE, "|") + on(segD, "_") + on(segC, "|") + on(segDP, "."),
	}
}

// TextReporter writes a human-readable report of every failed wait.
type TextReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextReporter creates a TextReporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// Report implements core.Reporter.
func (r *TextReporter) Report(res core.Result) error {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("expected sequence was not found: %s\n", res.Fixture))
	buf.WriteString(fmt.Sprintf("  events: %d, progress: %d\n", res.Events, res.Progress))

	d := res.Diagnostic
	if d == nil {
		if res.Events == 0 {
			buf.WriteString("  no events observed\n")
		} else {
			buf.WriteString("  no mismatch recorded\n")
		}
	} else {
		buf.WriteString(fmt.Sprintf("  furthest mismatch: %s\n", d))
		exp := RenderPattern(d.ExpectedSegments)
		obs := RenderPattern(d.ObservedSegments)
		buf.WriteString(fmt.Sprintf("    %-10s%s\n", "expected", "observed"))
		for i := range exp {
			buf.WriteString(fmt.Sprintf("    %-10s%s\n", exp[i], strings.TrimRight(obs[i], " ")))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.w.Write(buf.Bytes())
	return err
}

// JSONReporter writes every failed wait as one JSON object per line.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter creates a JSONReporter writing to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Report implements core.Reporter.
func (r *JSONReporter) Report(res core.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(res); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
