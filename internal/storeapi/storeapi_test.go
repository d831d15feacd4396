package storeapi

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := store.Config{ServiceName: "camera", Backend: store.BackendSQLite, SQLite: store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "camera.db")}}
	s, err := store.New(cfg)
	require.NoError(t, err)
	return s
}

func dialBufconn(t *testing.T, lis *bufconn.Listener) *Client {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	return &Client{conn: conn, stub: newClientStub(conn)}
}

func TestAddAndResetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	gs := grpc.NewServer()
	RegisterServer(gs, NewServer(s))

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	c := dialBufconn(t, lis)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Add(ctx, "app", request.Feature(1), 100, true))

	q := s.Query().ForApplicationID("app").ForFeature(1)
	require.NoError(t, q.Execute())
	require.True(t, q.HasMore())
	rec, err := q.Current()
	require.NoError(t, err)
	require.Equal(t, request.Granted, rec.Answer)

	require.NoError(t, c.Reset(ctx))

	q2 := s.Query().All()
	require.NoError(t, q2.Execute())
	require.False(t, q2.HasMore())
}
