//go:build linux

package connector

import (
	"os"
	"strconv"
	"strings"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// ResolveAppArmorLabel resolves pid's confinement label to an
// application_id by reading its current AppArmor profile from procfs. An
// unconfined or unreadable process resolves to "unconfined", which the
// production whitelist predicate matches by default.
func ResolveAppArmorLabel(pid request.PID) (request.ApplicationID, error) {
	data, err := os.ReadFile(procAttrCurrent(pid))
	if err != nil {
		return "unconfined", nil
	}

	label := strings.TrimSpace(string(data))
	if label == "" || label == "unconfined" {
		return "unconfined", nil
	}

	// The kernel appends " (enforce)" or " (complain)" to the profile
	// name; strip it before returning the bare label.
	if idx := strings.IndexByte(label, ' '); idx >= 0 {
		label = label[:idx]
	}
	return request.ApplicationID(label), nil
}

func procAttrCurrent(pid request.PID) string {
	return "/proc/" + strconv.Itoa(int(pid)) + "/attr/current"
}
