package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/logging"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("client closed")

// Client watches a remote display. It implements core.Display and
// core.Clock: Elapsed reports the virtual time carried by the most recent
// frame, so a subscriber reading the clock from its callback sees the time
// of the frame being delivered.
type Client struct {
	conn    *grpc.ClientConn
	ownConn bool
	log     *slog.Logger

	subMu  sync.RWMutex
	subs   map[int]core.StateChangedFunc
	order  []int
	nextID int

	clockMu sync.RWMutex
	now     time.Duration

	mu      sync.Mutex // guards cancel, done, err, closed
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	closed  bool
	started bool
}

// NewClient creates a client on an existing connection. The caller keeps
// ownership of conn.
func NewClient(conn *grpc.ClientConn, logger *slog.Logger) *Client {
	return &Client{
		conn: conn,
		subs: make(map[int]core.StateChangedFunc),
		log:  logging.For(logger, logging.ComponentRemote),
	}
}

// Dial connects to target and returns a client that closes the connection
// on Close.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	c := NewClient(conn, nil)
	c.ownConn = true
	return c, nil
}

// Start opens the Watch stream and returns once the server-side subscription
// is live. Frames are delivered until ctx is done or Close is called.
// Idempotent: safe to call multiple times (no-op after first).
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}

	sctx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(sctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		cancel()
		return fmt.Errorf("open watch stream: %w", err)
	}
	if err := stream.SendMsg(&empty.Empty{}); err != nil {
		cancel()
		return fmt.Errorf("send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return fmt.Errorf("close send: %w", err)
	}
	if _, err := stream.Header(); err != nil {
		cancel()
		return fmt.Errorf("wait for subscription: %w", err)
	}

	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true
	go c.recvLoop(stream, c.done)
	return nil
}

func (c *Client) recvLoop(stream grpc.ClientStream, done chan struct{}) {
	defer close(done)
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				c.log.Debug("watch stream ended")
				return
			}
			c.log.Error("watch stream failed", "error", err)
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		cells, segments, at, err := decodeFrame(msg)
		if err != nil {
			c.log.Warn("bad frame", "error", err)
			continue
		}
		c.clockMu.Lock()
		if at > c.now {
			c.now = at
		}
		c.clockMu.Unlock()
		c.notify(cells, segments)
	}
}

func (c *Client) notify(cells, segments []bool) {
	c.subMu.RLock()
	fns := make([]core.StateChangedFunc, 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subs[id])
	}
	c.subMu.RUnlock()
	for _, fn := range fns {
		fn(slices.Clone(cells), slices.Clone(segments))
	}
}

// Subscribe implements core.Display.
func (c *Client) Subscribe(fn core.StateChangedFunc) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.order = append(c.order, id)
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subs, id)
			if i := slices.Index(c.order, id); i >= 0 {
				c.order = slices.Delete(c.order, i, i+1)
			}
		})
	}
}

// Elapsed implements core.Clock.
func (c *Client) Elapsed() time.Duration {
	c.clockMu.RLock()
	defer c.clockMu.RUnlock()
	return c.now
}

// Err returns the error that ended the stream, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the stream and waits for delivery to stop.
// Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if c.ownConn {
		return c.conn.Close()
	}
	return nil
}
