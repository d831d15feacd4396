package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeServer struct {
	started int32
	err     error
	block   bool
}

func (f *fakeServer) Serve(ctx context.Context) error {
	atomic.AddInt32(&f.started, 1)
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.err
}

func TestRunReturnsWhenAllServersReturn(t *testing.T) {
	s1 := &fakeServer{}
	s2 := &fakeServer{}

	rt := New(Config{})
	err := rt.Run(context.Background(), s1, s2)

	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&s1.started))
	assert.Equal(t, int32(1), atomic.LoadInt32(&s2.started))
}

func TestRunPropagatesServerError(t *testing.T) {
	boom := errors.New("boom")
	s := &fakeServer{err: boom}

	rt := New(Config{})
	err := rt.Run(context.Background(), s)

	assert.ErrorIs(t, err, boom)
}

func TestRunUnblocksOnContextCancellation(t *testing.T) {
	s := &fakeServer{block: true}

	rt := New(Config{ShutdownTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() { runDone <- rt.Run(ctx, s) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	rt := New(Config{})
	assert.Equal(t, DefaultWorkerPoolSize, rt.poolSize)
	assert.Equal(t, 10*time.Second, rt.shutdownTimeout)
}
