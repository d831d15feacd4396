package agent

import (
	"context"
	"regexp"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
)

// appIDPattern matches the conventional "<package>_<app>_<version>" shape.
var appIDPattern = regexp.MustCompile(`^(.*)_(.*)_(.*)$`)

// AppIDFormatter normalizes the application id to its package component
// before delegating. An id that doesn't match the three-part convention
// is forwarded unchanged.
type AppIDFormatter struct {
	inner Agent
}

// NewAppIDFormatter wraps inner. inner must not be nil.
func NewAppIDFormatter(inner Agent) *AppIDFormatter {
	if inner == nil {
		panic("agent: AppIDFormatter requires a non-nil inner agent")
	}
	return &AppIDFormatter{inner: inner}
}

func (a *AppIDFormatter) Name() string { return "app_id_formatter" }

func (a *AppIDFormatter) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartAgentSpan(ctx, a.Name(), telemetry.ApplicationID(string(params.ApplicationID)))
	defer span.End()

	if m := appIDPattern.FindStringSubmatch(string(params.ApplicationID)); m != nil {
		normalized := request.ApplicationID(m[1])
		if normalized != params.ApplicationID {
			logger.DebugCtx(ctx, "normalized application id", logger.ApplicationID(string(params.ApplicationID)), "normalized", string(normalized))
		}
		params.ApplicationID = normalized
	}

	return a.inner.Authenticate(ctx, params)
}
