package storeapi

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// DefaultTimeout is the request timeout the service-facing read/mutate
// interface uses.
const DefaultTimeout = time.Second

// Client is the service-facing wrapper used by cmd/trustbrokerctl and by
// a host service's own integration: it dials the broker's store-exposure
// socket once and applies DefaultTimeout to every call unless the caller
// supplies a context with its own deadline.
type Client struct {
	conn *grpc.ClientConn
	stub *clientStub
}

// Dial connects to the store-exposure endpoint at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		fmt.Sprintf("unix://%s", socketPath),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("storeapi: dialing %s: %w", socketPath, err)
	}
	return &Client{conn: conn, stub: newClientStub(conn)}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Add persists one decision.
func (c *Client) Add(ctx context.Context, id request.ApplicationID, feature request.Feature, when int64, granted bool) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	_, err := c.stub.Add(ctx, &AddRequest{ApplicationID: id, Feature: feature, When: when, Granted: granted})
	return err
}

// Reset discards every stored decision.
func (c *Client) Reset(ctx context.Context) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	_, err := c.stub.Reset(ctx, &ResetRequest{})
	return err
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
