// Package benchmarks provides performance benchmarks for frame matching.
package benchmarks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/extensibility"
	"github.com/comalice/segverify/internal/primitives"
)

func BenchmarkMatcher_Sequence(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("frames=%d", n), func(b *testing.B) {
			fx := GenSequence(n, 100*time.Millisecond)
			if err := fx.Validate(); err != nil {
				b.Fatal(err)
			}
			frames := GenFrames(n, 100*time.Millisecond)
			m := core.NewMatcher("bench", nil, nil)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Arm(fx)
				for _, f := range frames {
					m.OnEvent(f)
				}
				if st := m.Disarm(); !st.Success {
					b.Fatalf("sequence not matched: %+v", st)
				}
			}
			b.ReportMetric(float64(b.N*n)/b.Elapsed().Seconds(), "frames/sec")
		})
	}
}

// Every frame fails and resets, the worst case for diagnostics bookkeeping.
func BenchmarkMatcher_Mismatch(b *testing.B) {
	fx := GenSequence(8, 100*time.Millisecond)
	if err := fx.Validate(); err != nil {
		b.Fatal(err)
	}
	f := primitives.Frame{Cells: []bool{false}, Segments: 0xff00}
	m := core.NewMatcher("bench", nil, nil)
	m.Arm(fx)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.OnEvent(f)
	}
}

// Eight goroutines drive the display concurrently while a wait is armed.
func BenchmarkSession_ConcurrentNotifications(b *testing.B) {
	d := extensibility.NewSimDisplay(16, 1, nil)
	clock := extensibility.NewManualClock(0)
	s := core.NewSession(d, clock)
	if err := s.Start(); err != nil {
		b.Fatal(err)
	}
	defer s.Stop()

	fx := &primitives.Fixture{
		Mapping:  map[string]primitives.Pattern{"never": 0xffff},
		Sequence: []primitives.FrameExpectation{{Value: "never"}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	waited := make(chan struct{})
	go func() {
		defer close(waited)
		s.WaitForFixture(ctx, fx, core.WithTimeout(time.Hour))
	}()

	const workers = 8
	perWorker := b.N/workers + 1
	var wg sync.WaitGroup
	b.ReportAllocs()
	b.ResetTimer()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				clock.Advance(time.Millisecond)
				d.SetSegment(w, i%2 == 0)
			}
		}(w)
	}
	wg.Wait()
	b.StopTimer()
	cancel()
	<-waited
}

func BenchmarkParseFixture(b *testing.B) {
	for _, format := range []primitives.Format{primitives.FormatJSON, primitives.FormatYAML} {
		name := "json"
		if format == primitives.FormatYAML {
			name = "yaml"
		}
		data := GenFixtureDocument(500, 100*time.Millisecond, format)
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := primitives.ParseFixture(data, format); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
