package remote

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/logging"
)

// DefaultBuffer is the number of frames queued per watcher. A watcher that
// falls further behind has its stream ended with codes.ResourceExhausted.
const DefaultBuffer = 1024

type frame struct {
	cells, segments []bool
	at              time.Duration
}

// Server exports a local display over the Watch stream. Every watcher gets
// its own display subscription.
type Server struct {
	display core.Display
	clock   core.Clock
	buffer  int
	log     *slog.Logger

	mu sync.Mutex
	gs *grpc.Server
}

// NewServer creates a Server for display. Frames are stamped with clock.
func NewServer(display core.Display, clock core.Clock, logger *slog.Logger) *Server {
	return &Server{
		display: display,
		clock:   clock,
		buffer:  DefaultBuffer,
		log:     logging.For(logger, logging.ComponentRemote),
	}
}

// Register adds the Display service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// Serve creates a gRPC server, registers the service and serves lis until
// Stop is called.
func (s *Server) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	s.mu.Lock()
	s.gs = gs
	s.mu.Unlock()
	s.log.Info("serving display", "addr", lis.Addr().String())
	return gs.Serve(lis)
}

// Stop closes the server started by Serve and ends all Watch streams.
func (s *Server) Stop() {
	s.mu.Lock()
	gs := s.gs
	s.gs = nil
	s.mu.Unlock()
	if gs != nil {
		gs.Stop()
	}
}

// Watch streams every display change to the caller until it goes away.
func (s *Server) Watch(_ *empty.Empty, stream grpc.ServerStream) error {
	queue := make(chan frame, s.buffer)
	overflow := make(chan struct{})
	var once sync.Once
	unsubscribe := s.display.Subscribe(func(cells, segments []bool) {
		f := frame{
			cells:    append([]bool(nil), cells...),
			segments: append([]bool(nil), segments...),
			at:       s.clock.Elapsed(),
		}
		select {
		case queue <- f:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	if err := stream.SendHeader(metadata.Pairs(subscribedHeader, "1")); err != nil {
		return err
	}
	s.log.Debug("watcher subscribed")

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("watcher gone", "reason", ctx.Err())
			return nil
		case <-overflow:
			// A gap in the stream would be matched as if it never happened.
			s.log.Error("watcher too slow, closing stream", "buffer", s.buffer)
			return status.Errorf(codes.ResourceExhausted, "watcher fell more than %d frames behind", s.buffer)
		case f := <-queue:
			msg, err := encodeFrame(f.cells, f.segments, f.at)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
