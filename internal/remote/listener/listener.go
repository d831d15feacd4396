package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/metrics"
	"github.com/trustbrokerd/trustbroker/internal/remote"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
	"github.com/trustbrokerd/trustbroker/internal/wire"
)

// Listener is the broker-side remote agent. It accepts connections
// from per-session connector processes (internal/remote/connector),
// registers one session per connecting uid, and implements agent.Agent
// itself: Authenticate forwards a decision request to the session
// registered for the caller's uid and waits for the single-byte answer.
//
// Listener satisfies agent.Agent structurally (Name/Authenticate) without
// importing that package, avoiding a cycle with internal/agent.
type Listener struct {
	socketPath string
	registry   *Registry
	startTime  remote.StartTimeResolver

	ln net.Listener
	wg sync.WaitGroup

	writeMu sync.Map // request.UID -> *sync.Mutex, serializes writes per session
}

// New builds a Listener bound to socketPath. startTime defaults to
// remote.ProcessStartTime when nil.
func New(socketPath string, startTime remote.StartTimeResolver) *Listener {
	if startTime == nil {
		startTime = remote.ProcessStartTime
	}
	return &Listener{
		socketPath: socketPath,
		registry:   NewRegistry(),
		startTime:  startTime,
	}
}

func (l *Listener) Name() string { return "remote_listener" }

// Registry exposes the session registry for the admin diagnostic surface.
func (l *Listener) Registry() *Registry { return l.registry }

// Serve binds the socket and runs the accept loop until ctx is cancelled.
// Any transient accept error restarts the loop rather than aborting it.
func (l *Listener) Serve(ctx context.Context) error {
	_ = os.Remove(l.socketPath)
	ln, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("%w: listening on %s: %v", trusterr.ErrConfiguration, l.socketPath, err)
	}
	l.ln = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.WarnCtx(ctx, "accept failed, retrying", logger.Err(err))
			continue
		}
		l.wg.Add(1)
		go l.onNewSession(ctx, conn)
	}

	l.wg.Wait()
	l.registry.CloseAll()
	return nil
}

// Close unblocks Serve by closing the underlying socket.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// onNewSession registers the accepted connection under its peer uid.
// Cleanup happens lazily: Authenticate removes the registry entry the
// first time a subsequent request/answer round-trip on this connection
// fails with a transport-lost error.
func (l *Listener) onNewSession(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()

	info, err := peerCredentials(conn)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to resolve peer credentials", logger.Err(err))
		conn.Close()
		return
	}
	l.registry.Put(info.UID, conn, info)
	l.writeMu.Store(info.UID, &sync.Mutex{})
	metrics.SetActiveSessions(len(l.registry.Snapshot()))
}

// Authenticate implements agent.Agent by forwarding the decision to the
// session registered for params.UID and waiting for its answer.
func (l *Listener) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartTransportSpan(ctx, "request",
		telemetry.UID(uint32(params.UID)), telemetry.PID(int32(params.PID)))
	defer span.End()

	conn, ok := l.registry.Resolve(params.UID)
	if !ok {
		return request.Denied, nil
	}

	startBefore, err := l.startTime(params.PID)
	if err != nil {
		return request.Denied, err
	}

	req := wire.Request{
		AppUID:       params.UID,
		AppPID:       params.PID,
		Feature:      params.Feature,
		AppStartTime: startBefore,
	}

	muAny, _ := l.writeMu.LoadOrStore(params.UID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := req.Encode(conn); err != nil {
		if isTransportLost(err) {
			l.registry.Remove(params.UID, conn)
			metrics.RecordRemoteError("transport_lost")
			metrics.SetActiveSessions(len(l.registry.Snapshot()))
		}
		return request.Denied, err
	}

	answer, err := wire.DecodeAnswer(conn)
	if err != nil {
		if isTransportLost(err) {
			l.registry.Remove(params.UID, conn)
			metrics.RecordRemoteError("transport_lost")
			metrics.SetActiveSessions(len(l.registry.Snapshot()))
		}
		return request.Denied, err
	}

	startAfter, err := l.startTime(params.PID)
	if err != nil || startAfter != startBefore {
		telemetry.RecordError(ctx, trusterr.ErrSpoofingDetected)
		metrics.RecordRemoteError("spoofing_detected")
		return request.Denied, trusterr.ErrSpoofingDetected
	}

	return request.Answer(answer), nil
}

// isTransportLost classifies a socket I/O error as "the peer is gone",
// mirroring the access_denied/broken_pipe/connection_aborted/
// connection_refused/connection_reset set.
func isTransportLost(err error) bool {
	return errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}
