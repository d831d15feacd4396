package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one decision
// request flowing through the agent chain.
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	Operation     string    // authenticate, add, reset, query, erase...
	ServiceName   string    // host service this broker instance guards
	ApplicationID string    // confined app requesting a feature
	ClientIP      string    // unused for unix sockets; kept for admin HTTP surface
	UID           uint32    // requesting process's effective uid
	GID           uint32    // requesting process's effective gid
	PID           int32     // requesting process's pid
	StartTime     time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a request from the given
// service name.
func NewLogContext(serviceName string) *LogContext {
	return &LogContext{
		ServiceName: serviceName,
		StartTime:   time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		Operation:     lc.Operation,
		ServiceName:   lc.ServiceName,
		ApplicationID: lc.ApplicationID,
		ClientIP:      lc.ClientIP,
		UID:           lc.UID,
		GID:           lc.GID,
		PID:           lc.PID,
		StartTime:     lc.StartTime,
	}
}

// WithOperation returns a copy with the operation set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithApplication returns a copy with the application id set
func (lc *LogContext) WithApplication(appID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ApplicationID = appID
	}
	return clone
}

// WithCredentials returns a copy with the peer credentials set
func (lc *LogContext) WithCredentials(uid, gid uint32, pid int32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.UID = uid
		clone.GID = gid
		clone.PID = pid
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
