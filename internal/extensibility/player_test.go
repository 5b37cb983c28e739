package extensibility

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/primitives"
)

var digits = map[string]primitives.Pattern{
	"3": 0x4f,
	"2": 0x5b,
	"1": 0x06,
	"0": 0x3f,
}

func countdown() []Step {
	var steps []Step
	for _, d := range []string{"3", "2", "1", "0"} {
		steps = append(steps, Step{Delay: time.Second, Pattern: digits[d], Cells: []bool{true}})
	}
	return steps
}

func TestPlayer_AdvancesClockBeforeShowing(t *testing.T) {
	d := NewSimDisplay(8, 1, nil)
	clock := NewManualClock(0)

	var mu sync.Mutex
	var at []time.Duration
	unsub := d.Subscribe(func(_, _ []bool) {
		mu.Lock()
		defer mu.Unlock()
		at = append(at, clock.Elapsed())
	})
	defer unsub()

	p := &Player{Display: d, Clock: clock}
	if err := p.Play(context.Background(), countdown()); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}
	if len(at) != len(want) {
		t.Fatalf("notifications at %v, want %v", at, want)
	}
	for i := range want {
		if at[i] != want[i] {
			t.Errorf("frame %d at %v, want %v", i, at[i], want[i])
		}
	}
}

func TestPlayer_Cancel(t *testing.T) {
	p := &Player{Display: NewSimDisplay(8, 1, nil), Clock: NewManualClock(0), Pace: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := p.Go(ctx, countdown())
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("player did not stop")
	}
}

// The countdown is played twice so that a wait armed partway through the
// first run still sees one complete run.
func TestPlayer_DrivesSession(t *testing.T) {
	d := NewSimDisplay(8, 1, nil)
	clock := NewManualClock(0)
	tree := NewPeripheralTree()
	if err := tree.Add("sysbus.gpio.display", d, clock); err != nil {
		t.Fatal(err)
	}
	reg := core.NewRegistry(tree, nil)
	defer reg.Close()
	if _, err := reg.Register("countdown", "gpio.display", 5*time.Second); err != nil {
		t.Fatal(err)
	}

	tol := 0.1
	second := 1.0
	fx := &primitives.Fixture{Mapping: digits}
	for i, v := range []string{"3", "2", "1", "0"} {
		f := primitives.FrameExpectation{Value: v, Cells: []bool{true}}
		if i > 0 {
			f.Time, f.Tolerance = &second, &tol
		}
		fx.Sequence = append(fx.Sequence, f)
	}

	s, _ := reg.Get("countdown")
	results := make(chan core.Result, 1)
	go func() {
		res, err := s.WaitForFixture(context.Background(), fx)
		if err != nil {
			t.Error(err)
		}
		results <- res
	}()

	p := &Player{Display: d, Clock: clock, Pace: 20 * time.Millisecond}
	steps := append(countdown(), countdown()...)
	if err := <-p.Go(context.Background(), steps); err != nil {
		t.Fatal(err)
	}
	if res := <-results; !res.Success() {
		t.Errorf("result = %+v, want success", res)
	}
}
