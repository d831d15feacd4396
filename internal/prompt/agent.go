package prompt

import (
	"context"
	"strings"
	"sync"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/metrics"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// PromptAgent is the terminal agent in the production chain: it brokers a
// trusted interaction between the requesting app and the user. It satisfies
// agent.Agent structurally (Name/Authenticate) without importing that
// package, since internal/agent.ChainConfig injects it by interface value.
type PromptAgent struct {
	sessions SessionFactory
	appInfo  *AppInfoResolver
	launcher HelperLauncher
}

// NewPromptAgent wires the three collaborators the state machine needs.
// None may be nil.
func NewPromptAgent(sessions SessionFactory, appInfo *AppInfoResolver, launcher HelperLauncher) *PromptAgent {
	if sessions == nil {
		panic("prompt: PromptAgent requires a non-nil SessionFactory")
	}
	if appInfo == nil {
		panic("prompt: PromptAgent requires a non-nil AppInfoResolver")
	}
	if launcher == nil {
		panic("prompt: PromptAgent requires a non-nil HelperLauncher")
	}
	return &PromptAgent{sessions: sessions, appInfo: appInfo, launcher: launcher}
}

func (p *PromptAgent) Name() string { return "prompt" }

// Authenticate drives the Idle → SessionOpen → ChannelReady → HelperRunning
// → Terminated → Done state machine described for the prompt agent.
func (p *PromptAgent) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartPromptSpan(ctx, "authenticate",
		telemetry.ApplicationID(string(params.ApplicationID)), telemetry.PID(int32(params.PID)))
	defer span.End()

	// Idle → SessionOpen, with the parent-pid fallback on the specific
	// host error that means "could not identify application session".
	sess, err := p.sessions.OpenSession(params.PID)
	if err != nil && strings.Contains(err.Error(), errNoSessionSubstring) {
		logger.DebugCtx(ctx, "session open failed, retrying with parent pid", logger.PID(int32(params.PID)))
		sess, err = p.sessions.OpenSession(parentPID(params.PID))
	}
	if err != nil {
		telemetry.RecordError(ctx, trusterr.ErrInconclusiveAnswer)
		return request.Denied, trusterr.ErrInconclusiveAnswer
	}
	defer sess.Release()

	var stopped stoppedFlag
	sess.OnStopped(stopped.trip)

	// SessionOpen → ChannelReady
	channel, err := sess.Channel()
	if err != nil {
		telemetry.RecordError(ctx, trusterr.ErrInconclusiveAnswer)
		return request.Denied, trusterr.ErrInconclusiveAnswer
	}
	defer channel.Close()

	info, err := p.appInfo.Resolve(params.ApplicationID)
	if err != nil {
		return request.Denied, err
	}

	// ChannelReady → HelperRunning
	helper, err := p.launcher.Launch(channel, info, params.ApplicationID, params.Description)
	if err != nil {
		return request.Denied, err
	}
	stopped.onTrip(func() { _ = helper.Kill() })

	// HelperRunning → Terminated
	exit, err := helper.Wait()
	if err != nil {
		return request.Denied, err
	}

	// Terminated → Done (translate exit, release happens via defers above)
	switch {
	case exit.Signaled:
		telemetry.RecordError(ctx, trusterr.ErrInconclusiveAnswer)
		metrics.RecordPromptOutcome("inconclusive")
		return request.Denied, trusterr.ErrInconclusiveAnswer
	case exit.Exited && exit.ExitCode == 0:
		span.SetAttributes(telemetry.Answer(true))
		metrics.RecordPromptOutcome("granted")
		return request.Granted, nil
	default:
		span.SetAttributes(telemetry.Answer(false))
		metrics.RecordPromptOutcome("denied")
		return request.Denied, nil
	}
}

// parentPID is a seam for the host-specific parent-pid lookup used by the
// session-open fallback; production wiring overrides it via SetParentPIDFunc.
var parentPIDFunc = func(pid request.PID) request.PID { return pid }

func parentPID(pid request.PID) request.PID { return parentPIDFunc(pid) }

// SetParentPIDFunc overrides the parent-pid resolution strategy (normally
// backed by /proc or gopsutil) used by the session-open fallback.
func SetParentPIDFunc(fn func(request.PID) request.PID) {
	if fn == nil {
		fn = func(pid request.PID) request.PID { return pid }
	}
	parentPIDFunc = fn
}

// stoppedFlag makes the session-stopped callback idempotent: only the
// first delivery runs the registered action.
type stoppedFlag struct {
	mu     sync.Mutex
	tripped bool
	action func()
}

func (s *stoppedFlag) trip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return
	}
	s.tripped = true
	if s.action != nil {
		s.action()
	}
}

func (s *stoppedFlag) onTrip(action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		action()
		return
	}
	s.action = action
}
