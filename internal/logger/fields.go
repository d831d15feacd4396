package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys
// consistently across all log statements for log aggregation and
// querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation & Service
	// ========================================================================
	KeyOperation    = "operation"    // authenticate, add, reset, query, erase...
	KeyServiceName  = "service_name" // host service this broker guards
	KeyStatus       = "status"       // operation outcome
	KeyDurationMs   = "duration_ms"  // operation duration in milliseconds
	KeyError        = "error"        // error message
	KeyErrorCode    = "error_code"   // numeric/sentinel error code

	// ========================================================================
	// Request Identification
	// ========================================================================
	KeyApplicationID = "application_id" // confined app requesting a feature
	KeyFeature       = "feature"        // numeric feature identifier
	KeyUID           = "uid"            // requesting process's effective uid
	KeyGID           = "gid"            // requesting process's effective gid
	KeyPID           = "pid"            // requesting process's pid
	KeyStartTime     = "start_time"     // requesting process's start time
	KeyAnswer        = "answer"         // granted/denied

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID    = "session_id"    // prompt/remote session identifier
	KeyConnectionID = "connection_id" // socket connection identifier
	KeySocketPath   = "socket_path"   // unix domain socket path

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit   = "cache_hit"   // cache hit indicator
	KeyStoreType  = "store_type"  // store backend: sqlite, postgres
	KeyRowsErased = "rows_erased" // rows removed by a query erase pass

	// ========================================================================
	// Retry / Attempt Metadata
	// ========================================================================
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts
	KeyAgent      = "agent"       // name of the agent in the chain
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Operation & Service
// ----------------------------------------------------------------------------

// Operation returns a slog.Attr for the sub-operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// ServiceName returns a slog.Attr for the host service name
func ServiceName(name string) slog.Attr {
	return slog.String(KeyServiceName, name)
}

// Status returns a slog.Attr for operation outcome
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a sentinel error code/name
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// ----------------------------------------------------------------------------
// Request Identification
// ----------------------------------------------------------------------------

// ApplicationID returns a slog.Attr for the confined application id
func ApplicationID(id string) slog.Attr {
	return slog.String(KeyApplicationID, id)
}

// Feature returns a slog.Attr for the numeric feature identifier
func Feature(f uint64) slog.Attr {
	return slog.Uint64(KeyFeature, f)
}

// UID returns a slog.Attr for user ID
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID returns a slog.Attr for group ID
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// PID returns a slog.Attr for process ID
func PID(pid int32) slog.Attr {
	return slog.Any(KeyPID, pid)
}

// StartTime returns a slog.Attr for a process's start time (epoch ns)
func StartTime(ns int64) slog.Attr {
	return slog.Int64(KeyStartTime, ns)
}

// Answer returns a slog.Attr for a granted/denied decision
func Answer(granted bool) slog.Attr {
	if granted {
		return slog.String(KeyAnswer, "granted")
	}
	return slog.String(KeyAnswer, "denied")
}

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// SessionID returns a slog.Attr for session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ConnectionID returns a slog.Attr for connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// SocketPath returns a slog.Attr for a unix domain socket path
func SocketPath(path string) slog.Attr {
	return slog.String(KeySocketPath, path)
}

// ----------------------------------------------------------------------------
// Cache Layer
// ----------------------------------------------------------------------------

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// StoreType returns a slog.Attr for store backend type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// RowsErased returns a slog.Attr for rows removed by a query erase pass
func RowsErased(n int) slog.Attr {
	return slog.Int(KeyRowsErased, n)
}

// ----------------------------------------------------------------------------
// Retry / Attempt Metadata
// ----------------------------------------------------------------------------

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Agent returns a slog.Attr for the agent name in the chain
func Agent(name string) slog.Attr {
	return slog.String(KeyAgent, name)
}
