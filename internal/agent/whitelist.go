package agent

import (
	"context"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
)

// Predicate is a pure function of request.Parameters used by Whitelist to
// decide whether a request should bypass the rest of the chain.
type Predicate func(params request.Parameters) bool

// Unconfined is the default whitelist predicate: it matches the
// conventional id the host sandbox assigns to unconfined callers.
func Unconfined(params request.Parameters) bool {
	return params.ApplicationID == "unconfined"
}

// IDSet builds a predicate matching any of the given application ids.
// Used to back the hot-reloadable whitelist (see internal/config).
func IDSet(ids []request.ApplicationID) Predicate {
	set := make(map[request.ApplicationID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(params request.Parameters) bool {
		_, ok := set[params.ApplicationID]
		return ok
	}
}

// Whitelist grants unconditionally when its predicate holds, without
// consulting the inner agent at all.
type Whitelist struct {
	inner     Agent
	predicate Predicate
}

// NewWhitelist wraps inner with a predicate-based bypass. A nil predicate
// defaults to Unconfined.
func NewWhitelist(inner Agent, predicate Predicate) *Whitelist {
	if inner == nil {
		panic("agent: Whitelist requires a non-nil inner agent")
	}
	if predicate == nil {
		predicate = Unconfined
	}
	return &Whitelist{inner: inner, predicate: predicate}
}

func (w *Whitelist) Name() string { return "whitelist" }

func (w *Whitelist) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartAgentSpan(ctx, w.Name(), telemetry.ApplicationID(string(params.ApplicationID)))
	defer span.End()

	if w.predicate(params) {
		logger.DebugCtx(ctx, "whitelist bypass", logger.ApplicationID(string(params.ApplicationID)))
		span.SetAttributes(telemetry.Answer(true))
		return request.Granted, nil
	}

	return w.inner.Authenticate(ctx, params)
}
