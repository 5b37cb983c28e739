package segverify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func ExampleSession_WaitForFixture() {
	display := NewSimDisplay(8, 1, nil)
	s := NewSession(display, NewManualClock(0), WithName("lcd"))
	if err := s.Start(); err != nil {
		panic(err)
	}
	defer s.Stop()

	fx, err := NewFixtureBuilder().Digits().
		Frame("1").
		Frame("0").After(time.Second, 100*time.Millisecond).
		Build()
	if err != nil {
		panic(err)
	}
	res, _ := s.WaitForFixture(context.Background(), fx, WithTimeout(10*time.Millisecond))
	fmt.Println(res.Status, res.Events, errors.Is(res.Err(), ErrTimeout))
	// Output: timeout 0 true
}

func TestRegistryWithPeripheralTree(t *testing.T) {
	display := NewSimDisplay(8, 1, nil)
	clock := NewManualClock(0)
	tree := NewPeripheralTree()
	if err := tree.Add("sysbus.gpio.lcd", display, clock); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(tree, nil)
	defer reg.Close()
	if _, err := reg.Register("lcd", "lcd", time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("other", "uart", 0); !errors.Is(err, ErrUnresolvedPeripheral) {
		t.Errorf("err = %v, want ErrUnresolvedPeripheral", err)
	}

	s, _ := reg.Get("lcd")
	fx, err := NewFixtureBuilder().Digits().
		Frame("1").On(true).
		Frame("0").On(true).After(time.Second, 100*time.Millisecond).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	results := make(chan Result, 1)
	go func() {
		res, _ := s.WaitForFixture(context.Background(), fx)
		results <- res
	}()

	// Repeat the pair until the wait has armed and matched it.
	for {
		select {
		case res := <-results:
			if !res.Success() {
				t.Fatalf("result = %+v", res)
			}
			return
		case <-time.After(5 * time.Millisecond):
			clock.Advance(time.Second)
			display.Show(SevenSegmentDigits[1], true)
			clock.Advance(time.Second)
			display.Show(SevenSegmentDigits[0], true)
		}
	}
}
