package agent

import (
	"context"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// Func adapts a plain function to the Agent interface, mirroring the
// pattern of wrapping a closure as a named decision step. Useful in tests
// and as a terminal stub when no prompt agent is configured.
type Func struct {
	FuncName string
	Fn       func(ctx context.Context, params request.Parameters) (request.Answer, error)
}

func (f Func) Name() string {
	if f.FuncName != "" {
		return f.FuncName
	}
	return "func"
}

func (f Func) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	return f.Fn(ctx, params)
}
