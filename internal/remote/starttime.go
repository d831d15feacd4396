// Package remote holds collaborators shared by the listener and connector:
// the process start-time resolver used by both sides' anti-spoofing check.
package remote

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// StartTimeResolver returns a process's start time, in the same units on
// both ends of one wire record (milliseconds since the Unix epoch, per
// gopsutil's CreateTime). A mismatch between two reads for the same pid
// across the lifetime of a request means the pid was recycled underneath
// the requester — SpoofingDetected.
type StartTimeResolver func(pid request.PID) (int64, error)

// ProcessStartTime resolves pid's start time via gopsutil, portable across
// the platforms gopsutil supports.
func ProcessStartTime(pid request.PID) (int64, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, fmt.Errorf("remote: resolving process %d: %w", pid, err)
	}
	createTime, err := proc.CreateTime()
	if err != nil {
		return 0, fmt.Errorf("remote: reading start time for process %d: %w", pid, err)
	}
	return createTime, nil
}
