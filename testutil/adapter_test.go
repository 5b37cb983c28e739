package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/primitives"
)

// TestAdapters runs the same verification against a local and a remote display.
func TestAdapters(t *testing.T) {
	tests := []struct {
		name    string
		adapter DisplayAdapter
	}{
		{name: "Local", adapter: NewLocalAdapter(8)},
		{name: "Remote", adapter: NewRemoteAdapter(8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := tt.adapter
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := adapter.Start(ctx); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			defer adapter.Stop()

			s := core.NewSession(adapter.Display(), adapter.Clock(), core.WithName(tt.name))
			if err := s.Start(); err != nil {
				t.Fatal(err)
			}
			defer s.Stop()

			for _, file := range []string{"countdown.json", "countdown.yaml"} {
				path := WriteFixture(t, file, Countdown(3, 0.1))

				results := make(chan core.Result, 1)
				go func() {
					res, err := s.WaitForSequence(ctx, path, core.WithTimeout(5*time.Second))
					if err != nil {
						t.Errorf("%s: %v", file, err)
					}
					results <- res
				}()

				// Two runs, so a wait armed late still sees a full countdown.
				if err := adapter.Player(10*time.Millisecond).Play(ctx, CountdownSteps(3, time.Second, 2)); err != nil {
					t.Fatal(err)
				}
				if res := <-results; !res.Success() {
					t.Errorf("%s: result = %+v, want success", file, res)
				}
			}
		})
	}
}

func TestAdapters_TimingFailure(t *testing.T) {
	for _, adapter := range []DisplayAdapter{NewLocalAdapter(8), NewRemoteAdapter(8)} {
		ctx := context.Background()
		if err := adapter.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		s := core.NewSession(adapter.Display(), adapter.Clock())
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}

		results := make(chan core.Result, 1)
		go func() {
			res, _ := s.WaitForFixture(ctx, Countdown(2, 0.1), core.WithTimeout(500*time.Millisecond))
			results <- res
		}()
		// Digits arrive every 1.5s of virtual time, outside the 1s±0.1s window.
		adapter.Player(10*time.Millisecond).Play(ctx, CountdownSteps(2, 1500*time.Millisecond, 1))

		res := <-results
		if res.Success() {
			t.Error("slow countdown matched")
		}
		s.Stop()
		adapter.Stop()
	}
}

func TestWriteFixture(t *testing.T) {
	for _, name := range []string{"f.json", "f.yml"} {
		fx, err := primitives.LoadFixture(WriteFixture(t, name, Countdown(1, 0.05)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(fx.Sequence) != 2 || fx.Mapping["1"] != Digits[1] {
			t.Errorf("%s: loaded %+v", name, fx)
		}
		if *fx.Sequence[1].Tolerance != 0.05 {
			t.Errorf("%s: tolerance = %v", name, *fx.Sequence[1].Tolerance)
		}
	}
}
