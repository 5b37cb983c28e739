package extensibility

import (
	"context"
	"time"

	"github.com/comalice/segverify/internal/primitives"
)

// Step is one scripted display change: after Delay of virtual time the
// display shows Pattern on Cells.
type Step struct {
	Delay   time.Duration
	Pattern primitives.Pattern
	Cells   []bool
}

// Player drives a SimDisplay and a ManualClock through a script. With a zero
// Pace every step is applied immediately; otherwise steps are spaced by Pace
// of wall time so a waiting session sees them arrive asynchronously.
type Player struct {
	Display *SimDisplay
	Clock   *ManualClock
	Pace    time.Duration
}

// Play applies steps in order. It stops early when ctx is done.
func (p *Player) Play(ctx context.Context, steps []Step) error {
	var ticker *time.Ticker
	if p.Pace > 0 {
		ticker = time.NewTicker(p.Pace)
		defer ticker.Stop()
	}
	for _, st := range steps {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		p.Clock.Advance(st.Delay)
		p.Display.Show(st.Pattern, st.Cells...)
	}
	return nil
}

// Go plays steps on a new goroutine. The returned channel receives Play's
// result and is then closed.
func (p *Player) Go(ctx context.Context, steps []Step) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- p.Play(ctx, steps)
	}()
	return done
}
