// Package storeapi implements the store-exposure endpoint: the narrow
// service-facing surface that lets a host service add and reset rows in
// the broker's persistent store without going through the agent chain.
// This is deliberately a narrow surface: only Add and Reset are
// reachable, never Query.
//
// The transport is gRPC dialed against a unix:// socket path;
// google.golang.org/grpc is already part of the dependency graph for the
// OTLP trace exporter, so it is reused here rather than adding a second
// RPC stack. Access control is the socket file's permissions alone; no
// peer-credential check is made on incoming connections. The request/response
// types are plain structs carried over a small registered JSON codec (see
// codec.go) rather than protoc-generated messages, since protoc is not
// run as part of this build.
package storeapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// serviceName is the gRPC fully-qualified service name used in method
// paths (e.g. "/trustbroker.storeapi.StoreAPI/Add").
const serviceName = "trustbroker.storeapi.StoreAPI"

// AddRequest carries one decision to persist.
type AddRequest struct {
	ApplicationID request.ApplicationID
	Feature       request.Feature
	When          int64
	Granted       bool
}

// AddReply is empty on success; errors are carried as the gRPC status.
type AddReply struct{}

// ResetRequest is empty: reset takes no parameters.
type ResetRequest struct{}

// ResetReply is empty on success.
type ResetReply struct{}

// Server is implemented by the broker-side handler wrapping *store.Store.
type Server interface {
	Add(ctx context.Context, req *AddRequest) (*AddReply, error)
	Reset(ctx context.Context, req *ResetRequest) (*ResetReply, error)
}

// RegisterServer attaches impl to gs under the storeapi service name.
func RegisterServer(gs grpc.ServiceRegistrar, impl Server) {
	gs.RegisterService(&serviceDesc, impl)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Add", Handler: addHandler},
		{MethodName: "Reset", Handler: resetHandler},
	},
	Streams:  nil,
	Metadata: "internal/storeapi/service.go",
}

func addHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Add(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/Add", serviceName)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Add(ctx, req.(*AddRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/Reset", serviceName)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// clientStub is the generated-style client wrapper around a ClientConn.
type clientStub struct {
	cc grpc.ClientConnInterface
}

func newClientStub(cc grpc.ClientConnInterface) *clientStub {
	return &clientStub{cc: cc}
}

func (c *clientStub) Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddReply, error) {
	out := new(AddReply)
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/Add", serviceName), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientStub) Reset(ctx context.Context, in *ResetRequest, opts ...grpc.CallOption) (*ResetReply, error) {
	out := new(ResetReply)
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/Reset", serviceName), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
