package listener

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/wire"
)

func TestRegistryReplacesPriorSessionForSameUID(t *testing.T) {
	r := NewRegistry()
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	r.Put(1000, c1, SessionInfo{UID: 1000})
	r.Put(1000, c2, SessionInfo{UID: 1000})

	got, ok := r.Resolve(1000)
	require.True(t, ok)
	assert.Equal(t, c2, got)
}

func TestRegistrySnapshotIsReadOnlyView(t *testing.T) {
	r := NewRegistry()
	c, _ := net.Pipe()
	defer c.Close()

	r.Put(42, c, SessionInfo{UID: 42, PID: 7})
	snap := r.Snapshot()
	assert.Equal(t, request.PID(7), snap[42].PID)

	snap[42] = SessionInfo{UID: 999}
	got, _ := r.Resolve(42)
	assert.Equal(t, c, got, "mutating the snapshot must not affect the registry")
}

func TestListenerAuthenticateForwardsRequestAndReadsAnswer(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "broker.sock")
	l := New(sockPath, func(pid request.PID) (int64, error) { return 100, nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() { serveDone <- l.Serve(ctx) }()

	waitForSocket(t, sockPath)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	// Simulate the connector side: read the forwarded request, answer granted.
	go func() {
		req, err := wire.DecodeRequest(conn)
		if err != nil {
			return
		}
		_ = req
		_ = wire.Answer(request.Granted).Encode(conn)
	}()

	waitForRegistration(t, l, 1000)

	answer, err := l.Authenticate(context.Background(), request.Parameters{UID: 1000, PID: 55, Feature: 1})
	require.NoError(t, err)
	assert.Equal(t, request.Granted, answer)

	cancel()
	<-serveDone
}

func TestListenerAuthenticateDeniesWhenNoSessionRegistered(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "broker.sock")
	l := New(sockPath, nil)

	answer, err := l.Authenticate(context.Background(), request.Parameters{UID: 999})
	require.NoError(t, err)
	assert.Equal(t, request.Denied, answer)
}

func TestListenerAuthenticateDetectsSpoofing(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "broker.sock")
	calls := 0
	l := New(sockPath, func(pid request.PID) (int64, error) {
		calls++
		if calls == 1 {
			return 100, nil
		}
		return 200, nil // start time changed between the two reads
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Serve(ctx)
	waitForSocket(t, sockPath)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		_, _ = wire.DecodeRequest(conn)
		_ = wire.Answer(request.Granted).Encode(conn)
	}()

	waitForRegistration(t, l, 1000)

	_, err = l.Authenticate(context.Background(), request.Parameters{UID: 1000, PID: 1})
	assert.Error(t, err)
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

func waitForRegistration(t *testing.T, l *Listener, uid request.UID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := l.Registry().Resolve(uid); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("uid %d never registered", uid)
}
