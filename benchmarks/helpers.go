// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/segverify/internal/primitives"
)

// GenSequence creates a fixture of n frames cycling through eight one-hot
// patterns, every frame after the first timed at period±period/10.
func GenSequence(n int, period time.Duration) *primitives.Fixture {
	if n < 1 {
		n = 1
	}
	fx := &primitives.Fixture{Mapping: make(map[string]primitives.Pattern, 8)}
	for i := 0; i < 8; i++ {
		fx.Mapping[fmt.Sprintf("s%d", i)] = primitives.Pattern(1) << uint(i)
	}
	secs, tol := period.Seconds(), period.Seconds()/10
	for i := 0; i < n; i++ {
		f := primitives.FrameExpectation{Value: fmt.Sprintf("s%d", i%8)}
		if i > 0 {
			f.Time, f.Tolerance = &secs, &tol
		}
		fx.Sequence = append(fx.Sequence, f)
	}
	return fx
}

// GenFrames returns the frames that satisfy GenSequence(n, period).
func GenFrames(n int, period time.Duration) []primitives.Frame {
	frames := make([]primitives.Frame, n)
	for i := range frames {
		frames[i] = primitives.Frame{
			Cells:    []bool{false},
			Segments: primitives.Pattern(1) << uint(i%8),
			At:       time.Duration(i) * period,
		}
	}
	return frames
}

// GenFixtureDocument encodes GenSequence(n, period) as JSON or YAML.
func GenFixtureDocument(n int, period time.Duration, format primitives.Format) []byte {
	fx := GenSequence(n, period)
	var data []byte
	var err error
	if format == primitives.FormatYAML {
		data, err = yaml.Marshal(fx)
	} else {
		data, err = json.Marshal(fx)
	}
	if err != nil {
		panic(err)
	}
	return data
}
