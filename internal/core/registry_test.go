package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/exp/slices"
)

type mapResolver map[string]*fakeDisplay

func (r mapResolver) Resolve(path string) (Display, Clock, error) {
	d, ok := r[path]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedPeripheral, path)
	}
	return d, d, nil
}

func TestRegistry_Register(t *testing.T) {
	d := newFakeDisplay()
	reg := NewRegistry(mapResolver{"board.display": d}, nil)
	defer reg.Close()

	s, err := reg.Register("main", "board.display", 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "main" {
		t.Errorf("Name() = %q, want main", s.Name())
	}
	if s.DefaultTimeout() != DefaultTimeout {
		t.Errorf("DefaultTimeout() = %v, want %v", s.DefaultTimeout(), DefaultTimeout)
	}
	if got := d.subscribers(); got != 1 {
		t.Errorf("subscribers = %d, want 1", got)
	}
	if got, ok := reg.Get("main"); !ok || got != s {
		t.Errorf("Get(main) = %v, %v", got, ok)
	}
}

func TestRegistry_RegisterTimeout(t *testing.T) {
	reg := NewRegistry(mapResolver{"d": newFakeDisplay()}, nil, WithDefaultTimeout(time.Minute))
	defer reg.Close()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"registry default", 0, time.Minute},
		{"override", 3 * time.Second, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := reg.Register(tt.name, "d", tt.timeout)
			if err != nil {
				t.Fatal(err)
			}
			if s.DefaultTimeout() != tt.want {
				t.Errorf("DefaultTimeout() = %v, want %v", s.DefaultTimeout(), tt.want)
			}
		})
	}
}

func TestRegistry_Unresolved(t *testing.T) {
	reg := NewRegistry(mapResolver{}, nil)
	if _, err := reg.Register("main", "missing", 0); !errors.Is(err, ErrUnresolvedPeripheral) {
		t.Errorf("err = %v, want ErrUnresolvedPeripheral", err)
	}
	if len(reg.Names()) != 0 {
		t.Errorf("Names() = %v, want none", reg.Names())
	}

	nilReg := NewRegistry(nil, nil)
	if _, err := nilReg.Register("main", "any", 0); !errors.Is(err, ErrUnresolvedPeripheral) {
		t.Errorf("nil resolver err = %v, want ErrUnresolvedPeripheral", err)
	}
}

func TestRegistry_UnknownSession(t *testing.T) {
	reg := NewRegistry(mapResolver{}, nil)
	_, err := reg.WaitForSequence(context.Background(), "nope", "fixture.json")
	if !errors.Is(err, ErrUnknownSession) {
		t.Errorf("err = %v, want ErrUnknownSession", err)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry(mapResolver{"d": newFakeDisplay()}, nil)
	defer reg.Close()
	for _, name := range []string{"gamma", "alpha", "beta"} {
		if _, err := reg.Register(name, "d", 0); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"alpha", "beta", "gamma"}
	if got := reg.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_ReplaceStopsOld(t *testing.T) {
	first, second := newFakeDisplay(), newFakeDisplay()
	reg := NewRegistry(mapResolver{"one": first, "two": second}, nil)
	defer reg.Close()

	old, err := reg.Register("main", "one", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("main", "two", 0); err != nil {
		t.Fatal(err)
	}
	if got := first.subscribers(); got != 0 {
		t.Errorf("replaced session still subscribed (%d)", got)
	}
	if _, err := old.WaitForSequence(context.Background(), "unused.json"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("old session err = %v, want ErrNotStarted", err)
	}
	if got := len(reg.Names()); got != 1 {
		t.Errorf("len(Names()) = %d, want 1", got)
	}
}

func TestRegistry_WaitForSequence(t *testing.T) {
	d := newFakeDisplay()
	reg := NewRegistry(mapResolver{"d": d}, nil)
	defer reg.Close()
	s, err := reg.Register("main", "d", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		waitArmed(t, s)
		d.emit(0, 0x1)
		d.emit(ms(480), 0x2)
	}()
	res, err := reg.WaitForSequence(context.Background(), "main", writeFixture(t, exampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success() {
		t.Errorf("result = %+v, want success", res)
	}
}

func TestRegistry_Close(t *testing.T) {
	d := newFakeDisplay()
	reg := NewRegistry(mapResolver{"d": d}, nil)
	for _, name := range []string{"a", "b"} {
		if _, err := reg.Register(name, "d", 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	if got := d.subscribers(); got != 0 {
		t.Errorf("subscribers after Close = %d, want 0", got)
	}
	if len(reg.Names()) != 0 {
		t.Errorf("Names() after Close = %v", reg.Names())
	}
}
