// Tests for ChannelPublisher delivery and Session integration.
package production

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/extensibility"
	"github.com/comalice/segverify/internal/primitives"
)

func TestChannelPublisher_Delivery(t *testing.T) {
	ch := make(chan core.Progress, 10)
	p := NewChannelPublisher(ch)

	progress := core.Progress{Session: "main", Kind: core.ProgressAdvanced, Index: 1, At: time.Second}
	if err := p.Publish(context.Background(), progress); err != nil {
		t.Errorf("Publish failed: %v", err)
	}

	select {
	case got := <-ch:
		if got != progress {
			t.Errorf("received %+v, want %+v", got, progress)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("no progress received")
	}
}

func TestChannelPublisher_DropsWhenFull(t *testing.T) {
	ch := make(chan core.Progress, 1)
	p := NewChannelPublisher(ch)

	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), core.Progress{Index: i}); err != nil {
			t.Errorf("Publish #%d: %v", i, err)
		}
	}
	if got := (<-ch).Index; got != 0 {
		t.Errorf("first delivered index = %d, want 0", got)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected delivery %+v", extra)
	default:
	}
}

func TestChannelPublisher_Close(t *testing.T) {
	ch := make(chan core.Progress, 1)
	p := NewChannelPublisher(ch)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), core.Progress{}); err != nil {
		t.Errorf("Publish after Close = %v, want nil", err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}
}

func TestChannelPublisher_SessionIntegration(t *testing.T) {
	ch := make(chan core.Progress, 10)
	d := extensibility.NewSimDisplay(8, 1, nil)
	clock := extensibility.NewManualClock(0)

	s := core.NewSession(d, clock, core.WithName("main"), core.WithPublisher(NewChannelPublisher(ch)))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	fx := &primitives.Fixture{
		Mapping:  map[string]primitives.Pattern{"A": 0x1},
		Sequence: []primitives.FrameExpectation{{Value: "A"}},
	}
	results := make(chan core.Result, 1)
	go func() {
		res, _ := s.WaitForFixture(context.Background(), fx, core.WithTimeout(2*time.Second))
		results <- res
	}()

	// Keep toggling until the wait is armed and sees the pattern.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.Kind != core.ProgressCompleted {
				continue
			}
			if p.Session != "main" {
				t.Errorf("Session = %q, want main", p.Session)
			}
			if res := <-results; !res.Success() {
				t.Errorf("result = %+v", res)
			}
			return
		case <-deadline:
			t.Fatal("no completed progress")
		case <-time.After(5 * time.Millisecond):
			d.Show(0)
			d.Show(0x1, true)
		}
	}
}
