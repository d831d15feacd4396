//go:build !linux

package connector

import "github.com/trustbrokerd/trustbroker/internal/request"

// ResolveAppArmorLabel has no equivalent outside Linux in this tree; every
// caller resolves to "unconfined".
func ResolveAppArmorLabel(pid request.PID) (request.ApplicationID, error) {
	return "unconfined", nil
}
