// Command trustbrokerctl is the service-facing and operator-facing
// counterpart to trustbrokerd: it runs the remote connector as a
// foreground subcommand, and gives an operator a CLI for inspecting and
// resetting one service's decision cache.
package main

import (
	"fmt"
	"os"

	"github.com/trustbrokerd/trustbroker/cmd/trustbrokerctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
