package storeapi

import (
	"context"
	"net"
	"os"

	"google.golang.org/grpc"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/store"
)

// storeServer implements Server over a *store.Store. It is the only
// writer the broker exposes to the host service: Query is deliberately
// not reachable through this type.
type storeServer struct {
	store *store.Store
}

// NewServer wraps s as a Server for RegisterServer.
func NewServer(s *store.Store) Server {
	return &storeServer{store: s}
}

func (s *storeServer) Add(ctx context.Context, req *AddRequest) (*AddReply, error) {
	rec := request.Request{
		From:    req.ApplicationID,
		Feature: req.Feature,
		When:    req.When,
		Answer:  request.Answer(req.Granted),
	}
	if err := s.store.Add(ctx, rec); err != nil {
		return nil, err
	}
	return &AddReply{}, nil
}

func (s *storeServer) Reset(ctx context.Context, _ *ResetRequest) (*ResetReply, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, err
	}
	return &ResetReply{}, nil
}

// Listener builds the grpc.Server and the unix socket it should Serve on.
// Serve blocks until ctx is cancelled, satisfying runtime.Server so it can
// be supervised by internal/runtime alongside the listener and connector.
type Listener struct {
	socketPath string
	srv        *grpc.Server
	ln         net.Listener
}

// NewListener constructs the store-exposure endpoint bound to socketPath,
// backed by s.
func NewListener(socketPath string, s *store.Store) *Listener {
	gs := grpc.NewServer()
	RegisterServer(gs, NewServer(s))
	return &Listener{socketPath: socketPath, srv: gs}
}

func (l *Listener) Name() string { return "storeapi_listener" }

// Serve binds socketPath and runs the grpc server until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	_ = os.Remove(l.socketPath)
	ln, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return err
	}
	l.ln = ln

	go func() {
		<-ctx.Done()
		l.srv.GracefulStop()
	}()

	logger.InfoCtx(ctx, "store-exposure endpoint listening", "socket", l.socketPath)
	return l.srv.Serve(ln)
}

// Close stops the server immediately, for use outside the runtime.Run path
// (e.g. in tests).
func (l *Listener) Close() {
	l.srv.Stop()
}
