// Package runtime hosts the process-wide lifecycle shared by the broker
// daemon and its connector: a fixed worker pool driving the broker's
// async I/O (listener accept/read/write, prompt session callbacks), a
// signal trap for termination, and graceful shutdown.
//
// Exactly one Runtime is constructed per process at startup and passed
// explicitly into the components that need it, rather than held as
// global process-wide state.
package runtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trustbrokerd/trustbroker/internal/logger"
)

// DefaultWorkerPoolSize is the default fixed worker pool size.
const DefaultWorkerPoolSize = 2

// Server is any long-running component the Runtime supervises: blocking
// Serve until ctx is cancelled, then returning once fully stopped.
type Server interface {
	Serve(ctx context.Context) error
}

// Runtime is the process-wide lifecycle. Exactly one should exist per
// process; construct with New and pass it explicitly to the components
// that need it, rather than reaching for a package-level singleton.
type Runtime struct {
	poolSize        int
	shutdownTimeout time.Duration
}

// Config parameterizes New.
type Config struct {
	// WorkerPoolSize bounds how many servers may run concurrently under
	// Run. Zero defaults to DefaultWorkerPoolSize.
	WorkerPoolSize int
	// ShutdownTimeout bounds how long Run waits, after a termination
	// signal, for servers to return before giving up and returning
	// anyway (the caller's process then exits regardless).
	ShutdownTimeout time.Duration
}

// New builds a Runtime from cfg, applying defaults for zero values.
func New(cfg Config) *Runtime {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Runtime{poolSize: cfg.WorkerPoolSize, shutdownTimeout: cfg.ShutdownTimeout}
}

// Run installs a signal trap for SIGINT/SIGTERM, starts every server
// concurrently (bounded to poolSize workers via errgroup.SetLimit), and
// blocks until either every server has returned or a termination signal
// arrives. On signal, it cancels the shared context so each server's
// Serve unwinds; it then waits up to shutdownTimeout for them to finish
// before returning regardless, so a wedged server cannot hang the process
// forever. A server's exception (panic) is recovered and logged, and that
// server counts as having returned nil: the panic never crosses into
// another server's goroutine and does not cancel the other servers.
func (r *Runtime) Run(ctx context.Context, servers ...Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.poolSize)

	for _, srv := range servers {
		srv := srv
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("server panicked, recovered", "panic", rec)
					err = nil
				}
			}()
			return srv.Serve(gctx)
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received, initiating graceful shutdown", "signal", sig.String())
		cancel()
	}

	select {
	case err := <-done:
		return err
	case <-time.After(r.shutdownTimeout):
		logger.Warn("shutdown timeout elapsed, returning without waiting further", "timeout", r.shutdownTimeout)
		return nil
	}
}
