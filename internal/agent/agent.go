// Package agent implements the trust broker's decision pipeline: a chain
// of filters that each wrap an inner Agent and either answer a request
// terminally or delegate to their delegate. The canonical production
// chain (outermost first) is AppIdFormatter, Whitelist,
// PrivilegeEscalationGuard, CachedAgent, PromptAgent.
package agent

import (
	"context"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// Agent is the uniform decision contract every filter in the chain
// implements. Authenticate returns trusterr.ErrInconclusiveAnswer when no
// decision can be derived.
type Agent interface {
	// Name identifies the agent for logging and tracing.
	Name() string

	// Authenticate evaluates params and returns granted or denied, or
	// fails with an error (trusterr.ErrInconclusiveAnswer,
	// trusterr.ErrPrivilegeEscalation, ...).
	Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error)
}
