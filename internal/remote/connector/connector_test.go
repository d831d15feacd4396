package connector

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbrokerd/trustbroker/internal/agent"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/wire"
)

func TestValidateDescriptionFormatRejectsMissingPlaceholder(t *testing.T) {
	assert.Error(t, ValidateDescriptionFormat("no placeholder here"))
	assert.NoError(t, ValidateDescriptionFormat("allow %1$s to use the camera?"))
}

func TestNewFailsFastWhenBrokerUnreachable(t *testing.T) {
	_, err := New(Config{
		SocketPath:        filepath.Join(t.TempDir(), "missing.sock"),
		DescriptionFormat: "allow %1$s?",
		ResolveLabel:      func(request.PID) (request.ApplicationID, error) { return "app", nil },
	})
	assert.Error(t, err)
}

func TestConnectorServeAnswersForwardedRequest(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "broker.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			serverDone <- conn
		}
	}()

	grantChain := agent.Func{Fn: func(ctx context.Context, params request.Parameters) (request.Answer, error) {
		return request.Granted, nil
	}}

	c, err := New(Config{
		SocketPath:        sockPath,
		Chain:             grantChain,
		DescriptionFormat: "allow %1$s?",
		ResolveLabel:      func(request.PID) (request.ApplicationID, error) { return "com.example.app", nil },
		StartTime:         func(request.PID) (int64, error) { return 100, nil },
	})
	require.NoError(t, err)
	defer c.Close()

	var brokerSide net.Conn
	select {
	case brokerSide = <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("broker side never accepted")
	}
	defer brokerSide.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Serve(ctx)

	req := wire.Request{AppUID: 1000, AppPID: 1, Feature: 1, AppStartTime: 100}
	require.NoError(t, req.Encode(brokerSide))

	answer, err := wire.DecodeAnswer(brokerSide)
	require.NoError(t, err)
	assert.Equal(t, wire.Answer(request.Granted), answer)
}

func TestConnectorServeDeniesOnSpoofingMismatch(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "broker.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			serverDone <- conn
		}
	}()

	called := false
	grantChain := agent.Func{Fn: func(ctx context.Context, params request.Parameters) (request.Answer, error) {
		called = true
		return request.Granted, nil
	}}

	c, err := New(Config{
		SocketPath:        sockPath,
		Chain:             grantChain,
		DescriptionFormat: "allow %1$s?",
		ResolveLabel:      func(request.PID) (request.ApplicationID, error) { return "com.example.app", nil },
		StartTime:         func(request.PID) (int64, error) { return 999, nil }, // never matches
	})
	require.NoError(t, err)
	defer c.Close()

	var brokerSide net.Conn
	select {
	case brokerSide = <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("broker side never accepted")
	}
	defer brokerSide.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Serve(ctx)

	req := wire.Request{AppUID: 1000, AppPID: 1, Feature: 1, AppStartTime: 100}
	require.NoError(t, req.Encode(brokerSide))

	answer, err := wire.DecodeAnswer(brokerSide)
	require.NoError(t, err)
	assert.Equal(t, wire.Answer(request.Denied), answer)
	assert.False(t, called, "the local chain must not be consulted on a spoofing mismatch")
}
