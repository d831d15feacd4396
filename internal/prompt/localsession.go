package prompt

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// LocalSessionFactory is the production SessionFactory. The real host
// display session object (the thing that actually anchors a prompt window
// to the requesting app's on-screen surface) is an out-of-scope display
// server collaborator; this stand-in satisfies the same contract, a
// pre-authenticated channel fd handed to the helper and a
// session-stopped callback the host protocol would otherwise deliver, by
// opening a local socketpair and never calling the callback, since nothing
// here monitors the app's display surface.
type LocalSessionFactory struct{}

// OpenSession ignores pid: the stand-in has no host display protocol to
// bind against.
func (LocalSessionFactory) OpenSession(pid request.PID) (Session, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("prompt: opening local session channel: %w", err)
	}
	return &localSession{parentFD: fds[0], childFD: fds[1]}, nil
}

// localSession wraps one end of a socketpair as the pre-authenticated
// channel and keeps the other open so the parent end stays valid until the
// helper has had a chance to dup it.
type localSession struct {
	mu       sync.Mutex
	parentFD int
	childFD  int
	released bool
}

// Channel returns the child end as an *os.File with close-on-exec cleared,
// so ProcessHelperLauncher's cmd.ExtraFiles can hand it to the spawned
// helper.
func (s *localSession) Channel() (*os.File, error) {
	_, _, _ = syscall.Syscall(syscall.SYS_FCNTL, uintptr(s.childFD), syscall.F_SETFD, 0)
	f := os.NewFile(uintptr(s.childFD), "trust-prompt-channel")
	if f == nil {
		return nil, fmt.Errorf("prompt: invalid channel fd")
	}
	return f, nil
}

// OnStopped never fires: the stand-in has no asynchronous stop signal from
// a host display protocol to relay.
func (s *localSession) OnStopped(cb func()) {}

// Release closes the parent end. Safe to call more than once.
func (s *localSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	_ = syscall.Close(s.parentFD)
}
