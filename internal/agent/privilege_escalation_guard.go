package agent

import (
	"context"
	"fmt"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// UIDProvider returns the current process's effective uid. It is queried
// at every call, not at construction, so tests can vary it.
type UIDProvider func() request.UID

// PrivilegeEscalationGuard fails the request when the caller's claimed uid
// does not match the broker process's effective uid.
type PrivilegeEscalationGuard struct {
	inner      Agent
	currentUID UIDProvider
}

// NewPrivilegeEscalationGuard wraps inner. currentUID must not be nil.
func NewPrivilegeEscalationGuard(inner Agent, currentUID UIDProvider) *PrivilegeEscalationGuard {
	if inner == nil {
		panic("agent: PrivilegeEscalationGuard requires a non-nil inner agent")
	}
	if currentUID == nil {
		panic("agent: PrivilegeEscalationGuard requires a non-nil uid provider")
	}
	return &PrivilegeEscalationGuard{inner: inner, currentUID: currentUID}
}

func (g *PrivilegeEscalationGuard) Name() string { return "privilege_escalation_guard" }

func (g *PrivilegeEscalationGuard) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartAgentSpan(ctx, g.Name(), telemetry.UID(uint32(params.UID)))
	defer span.End()

	if actual := g.currentUID(); params.UID != actual {
		logger.WarnCtx(ctx, "privilege escalation detected",
			logger.UID(uint32(params.UID)), "current_uid", uint32(actual))
		telemetry.RecordError(ctx, trusterr.ErrPrivilegeEscalation)
		return request.Denied, fmt.Errorf("%w: claimed uid %d, process uid %d", trusterr.ErrPrivilegeEscalation, params.UID, actual)
	}

	return g.inner.Authenticate(ctx, params)
}
