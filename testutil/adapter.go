package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"gopkg.in/yaml.v3"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/extensibility"
	"github.com/comalice/segverify/internal/primitives"
	"github.com/comalice/segverify/internal/remote"
)

// DisplayAdapter provides a common interface for a display watched in-process
// and one watched over the Watch stream.
// This allows running the same test suite against both.
type DisplayAdapter interface {
	Start(ctx context.Context) error
	Stop() error
	// Display and Clock are what a session should subscribe to.
	Display() core.Display
	Clock() core.Clock
	// Player drives the underlying simulated display.
	Player(pace time.Duration) *extensibility.Player
}

// LocalAdapter watches a SimDisplay directly.
type LocalAdapter struct {
	display *extensibility.SimDisplay
	clock   *extensibility.ManualClock
}

// NewLocalAdapter creates an adapter around a new single-cell display.
func NewLocalAdapter(segments int) *LocalAdapter {
	return &LocalAdapter{
		display: extensibility.NewSimDisplay(segments, 1, nil),
		clock:   extensibility.NewManualClock(0),
	}
}

func (a *LocalAdapter) Start(context.Context) error { return nil }

func (a *LocalAdapter) Stop() error { return nil }

func (a *LocalAdapter) Display() core.Display { return a.display }

func (a *LocalAdapter) Clock() core.Clock { return a.clock }

func (a *LocalAdapter) Player(pace time.Duration) *extensibility.Player {
	return &extensibility.Player{Display: a.display, Clock: a.clock, Pace: pace}
}

// RemoteAdapter serves a SimDisplay over an in-memory gRPC connection and
// watches it through a remote.Client.
type RemoteAdapter struct {
	local  *LocalAdapter
	lis    *bufconn.Listener
	server *remote.Server
	client *remote.Client
}

// NewRemoteAdapter creates an adapter around a new single-cell display.
func NewRemoteAdapter(segments int) *RemoteAdapter {
	return &RemoteAdapter{local: NewLocalAdapter(segments)}
}

func (a *RemoteAdapter) Start(ctx context.Context) error {
	a.lis = bufconn.Listen(1 << 16)
	a.server = remote.NewServer(a.local.display, a.local.clock, nil)
	go a.server.Serve(a.lis)

	client, err := remote.Dial(ctx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return a.lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		a.server.Stop()
		return err
	}
	if err := client.Start(ctx); err != nil {
		client.Close()
		a.server.Stop()
		return err
	}
	a.client = client
	return nil
}

func (a *RemoteAdapter) Stop() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
	}
	if a.server != nil {
		a.server.Stop()
	}
	return err
}

func (a *RemoteAdapter) Display() core.Display { return a.client }

func (a *RemoteAdapter) Clock() core.Clock { return a.client }

func (a *RemoteAdapter) Player(pace time.Duration) *extensibility.Player {
	return a.local.Player(pace)
}

// WriteFixture writes fx to a file in a test temp dir and returns its path.
// The extension selects the encoding (.json, .yaml or .yml).
func WriteFixture(t testing.TB, name string, fx *primitives.Fixture) string {
	t.Helper()
	var data []byte
	var err error
	switch primitives.FormatFor(name) {
	case primitives.FormatYAML:
		data, err = yaml.Marshal(fx)
	default:
		data, err = json.MarshalIndent(fx, "", "  ")
	}
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Countdown returns a fixture for the seven-segment digits from..0, one per
// second with the given tolerance in seconds, on a single active cell.
func Countdown(from int, tolerance float64) *primitives.Fixture {
	fx := &primitives.Fixture{Mapping: make(map[string]primitives.Pattern)}
	second := 1.0
	for d := from; d >= 0; d-- {
		name := fmt.Sprint(d)
		fx.Mapping[name] = Digits[d]
		f := primitives.FrameExpectation{Value: name, Cells: []bool{true}}
		if d != from {
			f.Time, f.Tolerance = &second, &tolerance
		}
		fx.Sequence = append(fx.Sequence, f)
	}
	return fx
}

// CountdownSteps returns player steps showing from..0, one per delay, repeated
// runs times.
func CountdownSteps(from int, delay time.Duration, runs int) []extensibility.Step {
	var steps []extensibility.Step
	for r := 0; r < runs; r++ {
		for d := from; d >= 0; d-- {
			steps = append(steps, extensibility.Step{Delay: delay, Pattern: Digits[d], Cells: []bool{true}})
		}
	}
	return steps
}

// Digits are the seven-segment patterns of 0-9, segment a in bit 0.
var Digits = [10]primitives.Pattern{0x3f, 0x06, 0x5b, 0x4f, 0x66, 0x6d, 0x7d, 0x07, 0x7f, 0x6f}
