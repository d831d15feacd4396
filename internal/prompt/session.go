package prompt

import (
	"os"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// Session is a single host display session acquired for one request's
// lifetime. Implementations talk to whatever host display protocol is
// actually in use; the production binary wires a concrete implementation,
// tests use a fake.
type Session interface {
	// Channel returns the pre-authenticated display channel file, with
	// its close-on-exec flag cleared so a spawned helper inherits it.
	Channel() (*os.File, error)

	// OnStopped registers cb to be invoked asynchronously if the host
	// display protocol reports the session has stopped. Implementations
	// must make the callback idempotent: at most one delivery matters,
	// further ones are no-ops.
	OnStopped(cb func())

	// Release tears down the session. Safe to call more than once.
	Release()
}

// SessionFactory opens Sessions for a given requesting pid.
type SessionFactory interface {
	OpenSession(pid request.PID) (Session, error)
}

// errNoSessionSubstring is matched against by substring, mirroring the host error
// message the state machine's parent-pid fallback keys off.
const errNoSessionSubstring = "could not identify application session"
