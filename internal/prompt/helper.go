package prompt

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// HelperExit is the translated terminal state of a prompt helper process.
type HelperExit struct {
	Exited   bool
	ExitCode int
	Signaled bool
}

// HelperProcess supervises one running prompt helper.
type HelperProcess interface {
	// Wait blocks until the helper exits and returns its translated
	// terminal state.
	Wait() (HelperExit, error)
	// Kill sends SIGKILL. Safe to call after the process has already
	// exited.
	Kill() error
}

// HelperLauncher spawns the prompt helper binary per the process contract.
// ProcessHelperLauncher passes the channel fd, the localized name (as the
// title) and the description; the icon path and the application id are
// not passed to the helper.
type HelperLauncher interface {
	Launch(channel *os.File, info request.AppInfo, id request.ApplicationID, description string) (HelperProcess, error)
}

// HelperBinaryPath is the executable the production launcher spawns.
// Overridable for tests.
var HelperBinaryPath = "trust-prompt-helper"

// ProcessHelperLauncher spawns the real cmd/trust-prompt-helper binary,
// inheriting the channel fd as the helper's lowest extra file descriptor.
type ProcessHelperLauncher struct{}

func (ProcessHelperLauncher) Launch(channel *os.File, info request.AppInfo, id request.ApplicationID, description string) (HelperProcess, error) {
	cmd := exec.Command(HelperBinaryPath,
		"--mir_server_socket=fd://3",
		fmt.Sprintf("--title=%s", info.LocalizedName),
		fmt.Sprintf("--description=%s", description),
	)
	cmd.ExtraFiles = []*os.File{channel}
	cmd.Env = append(os.Environ(), "MIR_SOCKET=fd://3")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("prompt: spawning helper for %q: %w", id, err)
	}
	return &processHelper{cmd: cmd}, nil
}

type processHelper struct {
	cmd *exec.Cmd
}

func (p *processHelper) Wait() (HelperExit, error) {
	err := p.cmd.Wait()
	state := p.cmd.ProcessState
	if state == nil {
		return HelperExit{}, err
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && (ws.Signaled() || ws.Stopped()) {
		return HelperExit{Signaled: true}, nil
	}

	return HelperExit{Exited: true, ExitCode: state.ExitCode()}, nil
}

func (p *processHelper) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGKILL)
	if err != nil && err.Error() == os.ErrProcessDone.Error() {
		return nil
	}
	return err
}
