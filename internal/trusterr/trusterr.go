// Package trusterr defines the sentinel errors shared across the trust
// broker's components. Callers compare with errors.Is rather than type
// assertions, using a flat var-block of sentinel errors.
package trusterr

import "errors"

var (
	// ErrConfiguration is returned for missing or invalid CLI/factory
	// configuration. The caller should surface it and exit non-zero.
	ErrConfiguration = errors.New("configuration error")

	// ErrStoreOpen is returned when the persistent store cannot be
	// opened (backend I/O failure).
	ErrStoreOpen = errors.New("store open failed")

	// ErrStoreReset is returned when reset() fails on the backend.
	ErrStoreReset = errors.New("store reset failed")

	// ErrQueryInErrorState is returned when a Query method is called
	// after the query has entered the error state.
	ErrQueryInErrorState = errors.New("query is in error state")

	// ErrNoCurrentResult is returned when current()/erase() is called
	// without a valid cursor position (query not executed, or eor).
	ErrNoCurrentResult = errors.New("no current result")

	// ErrInconclusiveAnswer is returned when no decision could be
	// derived: the prompt helper was signalled or stopped, or session
	// creation failed on both the primary and parent-pid attempts.
	ErrInconclusiveAnswer = errors.New("inconclusive answer")

	// ErrPrivilegeEscalation is returned when the request's uid does
	// not match the current process's effective uid.
	ErrPrivilegeEscalation = errors.New("privilege escalation detected")

	// ErrSpoofingDetected is returned when a requesting process's start
	// time changes across the lifetime of a request.
	ErrSpoofingDetected = errors.New("spoofing detected")

	// ErrTransportLost is returned when a remote peer disappears
	// mid-transaction.
	ErrTransportLost = errors.New("transport lost")
)
