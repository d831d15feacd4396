// Command trust-prompt-helper is the isolated prompt UI process the prompt
// agent (internal/prompt) spawns for each decision that reaches a cache
// miss. Its only inputs are its argv and a single pre-authenticated
// channel file descriptor; it never touches the requesting application's
// state directly.
//
// The real visual rendering of the prompt is an out-of-scope display
// server collaborator. This binary is a minimal stand-in: outside
// --testing mode it writes a one-line summary of the request to its
// inherited channel fd and exits 0 (granted) or 1 (denied) based on the
// CORE_TRUST_MIR_PROMPT_ANSWER environment variable, so the isolation and
// channel-binding contract is exercisable end-to-end without a real display
// server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ()))
}

func run(args, environ []string) int {
	fs := flag.NewFlagSet("trust-prompt-helper", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	socket := fs.String("mir_server_socket", "", "pre-authenticated channel, must be fd://<int>")
	title := fs.String("title", "", "prompt title")
	description := fs.String("description", "", "prompt description")
	testing := fs.Bool("testing", false, "parse arguments and exit without opening the channel")

	if err := fs.Parse(args); err != nil {
		abort(fmt.Sprintf("parsing arguments: %v", err))
		return 1
	}

	if *socket == "" || *title == "" {
		abort("--mir_server_socket and --title are required")
		return 1
	}
	fd, err := parseChannelFD(*socket)
	if err != nil {
		abort(err.Error())
		return 1
	}

	if *testing {
		return 0
	}

	answer := envAnswer(environ)

	channel := os.NewFile(uintptr(fd), "trust-prompt-channel")
	if channel != nil {
		summary := fmt.Sprintf("%s: %s (%s)\n", *title, *description, answerLabel(answer))
		_, _ = channel.WriteString(summary)
		channel.Close()
	}

	if answer {
		return 0
	}
	return 1
}

// parseChannelFD validates the fd://<int> contract and extracts the file
// descriptor number.
func parseChannelFD(socket string) (int, error) {
	const prefix = "fd://"
	if !strings.HasPrefix(socket, prefix) {
		return 0, fmt.Errorf("--mir_server_socket must begin with %q, got %q", prefix, socket)
	}
	var fd int
	if _, err := fmt.Sscanf(socket[len(prefix):], "%d", &fd); err != nil {
		return 0, fmt.Errorf("--mir_server_socket has a non-numeric fd: %q", socket)
	}
	return fd, nil
}

// envAnswer reads CORE_TRUST_MIR_PROMPT_ANSWER from environ, defaulting to
// denied. This lets integration tests drive the helper deterministically
// without a real display server.
func envAnswer(environ []string) bool {
	const key = "CORE_TRUST_MIR_PROMPT_ANSWER="
	for _, kv := range environ {
		if strings.HasPrefix(kv, key) {
			v := strings.ToLower(strings.TrimPrefix(kv, key))
			return v == "1" || v == "true" || v == "granted"
		}
	}
	return false
}

func answerLabel(granted bool) string {
	if granted {
		return "granted"
	}
	return "denied"
}

// abort reports err and raises SIGABRT against the current process: a
// missing required flag aborts rather than exiting cleanly.
func abort(msg string) {
	fmt.Fprintln(os.Stderr, "trust-prompt-helper:", msg)
	_ = syscall.Kill(os.Getpid(), syscall.SIGABRT)
}
