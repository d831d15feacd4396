//go:build linux

package listener

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// peerCredentials queries (uid, pid, gid) via SO_PEERCRED on the accepted
// unix socket connection.
func peerCredentials(conn net.Conn) (SessionInfo, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return SessionInfo{}, fmt.Errorf("listener: connection is not a unix socket")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return SessionInfo{}, fmt.Errorf("listener: SyscallConn: %w", err)
	}

	var cred *unix.Ucred
	var ctrlErr error
	err = raw.Control(func(fd uintptr) {
		cred, ctrlErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return SessionInfo{}, fmt.Errorf("listener: raw control: %w", err)
	}
	if ctrlErr != nil {
		return SessionInfo{}, fmt.Errorf("listener: SO_PEERCRED: %w", ctrlErr)
	}

	return SessionInfo{
		UID: request.UID(cred.Uid),
		PID: request.PID(cred.Pid),
		GID: request.GID(cred.Gid),
	}, nil
}
