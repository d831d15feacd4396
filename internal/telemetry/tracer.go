package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for trust broker spans, following OpenTelemetry semantic
// convention style (dotted, lower-case namespaces).
const (
	// ========================================================================
	// Request identification
	// ========================================================================
	AttrApplicationID = "trustbroker.application_id"
	AttrFeature       = "trustbroker.feature"
	AttrServiceName   = "trustbroker.service_name"
	AttrUID           = "trustbroker.uid"
	AttrGID           = "trustbroker.gid"
	AttrPID           = "trustbroker.pid"
	AttrStartTime     = "trustbroker.start_time"

	// ========================================================================
	// Decision outcome
	// ========================================================================
	AttrAnswer      = "trustbroker.answer"
	AttrAgent       = "trustbroker.agent"
	AttrCacheHit    = "trustbroker.cache_hit"
	AttrInconclusive = "trustbroker.inconclusive"

	// ========================================================================
	// Store
	// ========================================================================
	AttrStoreType    = "trustbroker.store.type"
	AttrRowsMatched  = "trustbroker.store.rows_matched"
	AttrRowsErased   = "trustbroker.store.rows_erased"

	// ========================================================================
	// Transport
	// ========================================================================
	AttrSocketPath   = "trustbroker.transport.socket_path"
	AttrSessionID    = "trustbroker.transport.session_id"
	AttrConnectionID = "trustbroker.transport.connection_id"

	// ========================================================================
	// Prompt
	// ========================================================================
	AttrPromptState = "trustbroker.prompt.state"
	AttrHelperPID   = "trustbroker.prompt.helper_pid"
)

// Span names for trust broker operations.
const (
	SpanAuthenticate      = "agent.authenticate"
	SpanAgentFormatAppID  = "agent.format_application_id"
	SpanAgentWhitelist    = "agent.whitelist"
	SpanAgentGuard        = "agent.privilege_escalation_guard"
	SpanAgentCache        = "agent.cached"
	SpanAgentPrompt       = "agent.prompt"

	SpanStoreAdd    = "store.add"
	SpanStoreReset  = "store.reset"
	SpanStoreQuery  = "store.query"
	SpanStoreErase  = "store.erase"

	SpanTransportAccept  = "transport.accept"
	SpanTransportConnect = "transport.connect"
	SpanTransportRequest = "transport.request"

	SpanPromptSession = "prompt.session"
	SpanPromptHelper  = "prompt.helper"
)

// ApplicationID returns an attribute for the confined app's identifier.
func ApplicationID(id string) attribute.KeyValue {
	return attribute.String(AttrApplicationID, id)
}

// Feature returns an attribute for the numeric feature identifier.
func Feature(f uint64) attribute.KeyValue {
	return attribute.Int64(AttrFeature, int64(f))
}

// ServiceName returns an attribute for the host service name.
func ServiceName(name string) attribute.KeyValue {
	return attribute.String(AttrServiceName, name)
}

// UID returns an attribute for the requesting process's uid.
func UID(uid uint32) attribute.KeyValue {
	return attribute.Int64(AttrUID, int64(uid))
}

// GID returns an attribute for the requesting process's gid.
func GID(gid uint32) attribute.KeyValue {
	return attribute.Int64(AttrGID, int64(gid))
}

// PID returns an attribute for the requesting process's pid.
func PID(pid int32) attribute.KeyValue {
	return attribute.Int64(AttrPID, int64(pid))
}

// StartTime returns an attribute for a process's start time (epoch ns).
func StartTime(ns int64) attribute.KeyValue {
	return attribute.Int64(AttrStartTime, ns)
}

// Answer returns an attribute for a decision outcome.
func Answer(granted bool) attribute.KeyValue {
	return attribute.Bool(AttrAnswer, granted)
}

// Agent returns an attribute naming the agent that produced a decision.
func Agent(name string) attribute.KeyValue {
	return attribute.String(AttrAgent, name)
}

// CacheHit returns an attribute for cache hit indicator.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// Inconclusive returns an attribute marking an agent's answer as inconclusive.
func Inconclusive(v bool) attribute.KeyValue {
	return attribute.Bool(AttrInconclusive, v)
}

// StoreType returns an attribute for the store backend type.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// RowsMatched returns an attribute for the number of rows a query matched.
func RowsMatched(n int) attribute.KeyValue {
	return attribute.Int(AttrRowsMatched, n)
}

// RowsErased returns an attribute for the number of rows a query erased.
func RowsErased(n int) attribute.KeyValue {
	return attribute.Int(AttrRowsErased, n)
}

// SocketPath returns an attribute for a unix domain socket path.
func SocketPath(path string) attribute.KeyValue {
	return attribute.String(AttrSocketPath, path)
}

// SessionID returns an attribute for a transport session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// ConnectionID returns an attribute for a transport connection identifier.
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrConnectionID, id)
}

// PromptState returns an attribute for the prompt agent's current state.
func PromptState(state string) attribute.KeyValue {
	return attribute.String(AttrPromptState, state)
}

// HelperPID returns an attribute for the prompt helper subprocess's pid.
func HelperPID(pid int) attribute.KeyValue {
	return attribute.Int(AttrHelperPID, pid)
}

// StartAgentSpan starts a span for one agent's Authenticate call.
func StartAgentSpan(ctx context.Context, agentName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Agent(agentName)}, attrs...)
	return StartSpan(ctx, SpanAuthenticate, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation, trace.WithAttributes(attrs...))
}

// StartTransportSpan starts a span for a transport-level operation.
func StartTransportSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "transport."+operation, trace.WithAttributes(attrs...))
}

// StartPromptSpan starts a span for a prompt session operation.
func StartPromptSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "prompt."+operation, trace.WithAttributes(attrs...))
}
