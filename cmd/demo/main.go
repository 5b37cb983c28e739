package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/extensibility"
	"github.com/comalice/segverify/internal/logging"
	"github.com/comalice/segverify/internal/primitives"
	"github.com/comalice/segverify/internal/production"
	"github.com/comalice/segverify/internal/remote"
)

const sessionsYAML = `
default_timeout: 10s
sessions:
  - name: local
    peripheral: gpio.display
  - name: remote
    peripheral: remote.display
    timeout: 15s
`

const countdownYAML = `
mapping:
  "3": 0x4f
  "2": 0x5b
  "1": 0x06
  "0": 0x3f
sequence:
  - {value: "3", cells: [true]}
  - {value: "2", cells: [true], time: 1, tolerance: 0.1}
  - {value: "1", cells: [true], time: 1, tolerance: 0.1}
  - {value: "0", cells: [true], time: 1, tolerance: 0.1}
`

var digits = map[int]primitives.Pattern{3: 0x4f, 2: 0x5b, 1: 0x06, 0: 0x3f}

func countdown(period time.Duration, runs int) []extensibility.Step {
	var steps []extensibility.Step
	for r := 0; r < runs; r++ {
		for d := 3; d >= 0; d-- {
			steps = append(steps, extensibility.Step{Delay: period, Pattern: digits[d], Cells: []bool{true}})
		}
	}
	return steps
}

func main() {
	logging.SetLogLevel(slog.LevelInfo)
	logger := logging.NewLogger(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := os.MkdirTemp("", "segverify-demo")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	display := extensibility.NewSimDisplay(8, 1, logger)
	clock := extensibility.NewManualClock(0)

	// Serve the display over gRPC and watch it from a client in the same
	// process.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	server := remote.NewServer(display, clock, logger)
	go server.Serve(lis)
	defer server.Stop()

	client, err := remote.Dial(ctx, lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(err)
	}
	defer client.Close()
	if err := client.Start(ctx); err != nil {
		panic(err)
	}

	tree := extensibility.NewPeripheralTree()
	if err := tree.Add("sysbus.gpio.display", display, clock); err != nil {
		panic(err)
	}
	if err := tree.Add("remote.display", client, client); err != nil {
		panic(err)
	}

	progress := make(chan core.Progress, 100)
	publisher := production.NewChannelPublisher(progress)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range progress {
			fmt.Printf("  [%s] %s index=%d at=%v\n", p.Session, p.Kind, p.Index, p.At)
		}
	}()

	reg := core.NewRegistry(tree, logger,
		core.WithLogger(logger),
		core.WithPublisher(publisher),
		core.WithReporter(production.NewTextReporter(os.Stdout)),
	)
	defer reg.Close()

	cfgPath := filepath.Join(dir, "sessions.yaml")
	if err := os.WriteFile(cfgPath, []byte(sessionsYAML), 0o644); err != nil {
		panic(err)
	}
	cfg, err := production.LoadSessionConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if err := cfg.Register(reg); err != nil {
		panic(err)
	}

	fixture := filepath.Join(dir, "countdown.yaml")
	if err := os.WriteFile(fixture, []byte(countdownYAML), 0o644); err != nil {
		panic(err)
	}

	player := &extensibility.Player{Display: display, Clock: clock, Pace: 200 * time.Millisecond}
	runs := []struct {
		session string
		period  time.Duration
		timeout time.Duration
	}{
		{"local", time.Second, 0},
		{"remote", time.Second, 0},
		{"local", 1500 * time.Millisecond, 3 * time.Second}, // too slow, fails
	}
	for _, run := range runs {
		fmt.Printf("\n--- %s, one digit every %v ---\n", run.session, run.period)

		results := make(chan error, 1)
		go func() {
			res, err := reg.WaitForSequence(ctx, run.session, fixture, core.WithTimeout(run.timeout))
			if err == nil {
				err = res.Err()
			}
			results <- err
		}()

		if err := player.Play(ctx, countdown(run.period, 2)); err != nil {
			fmt.Println("Interrupted:", err)
			break
		}
		if err := <-results; err != nil {
			fmt.Println("Wait failed:", err)
		} else {
			fmt.Println("Sequence found.")
		}
	}

	publisher.Close()
	<-drained
	fmt.Println("\nDemo complete.")
}
