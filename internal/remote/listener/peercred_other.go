//go:build !linux

package listener

import (
	"fmt"
	"net"
)

// peerCredentials has no portable equivalent to SO_PEERCRED outside Linux
// in this tree; the broker is only shipped for Linux hosts today.
func peerCredentials(conn net.Conn) (SessionInfo, error) {
	return SessionInfo{}, fmt.Errorf("listener: peer credential lookup is unsupported on this platform")
}
