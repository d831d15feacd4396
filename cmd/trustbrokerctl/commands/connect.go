package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trustbrokerd/trustbroker/internal/agent"
	brokerconfig "github.com/trustbrokerd/trustbroker/internal/config"
	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/prompt"
	"github.com/trustbrokerd/trustbroker/internal/remote/connector"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/runtime"
	"github.com/trustbrokerd/trustbroker/internal/store"
)

func newConnectCmd() *cobra.Command {
	cv := viper.New()

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Run the remote connector, dialing a broker and answering its decision requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, cv)
		},
	}

	flags := cmd.Flags()
	flags.String("for-service", "", "host service this connector answers decisions for")
	flags.String("local-agent", string(brokerconfig.LocalAgentMir), "terminal agent consulted on a cache miss (MirAgent, TerminalAgent)")
	flags.String("trusted-mir-socket", "", "broker socket path to dial")
	flags.String("description-pattern", "%1$s wants to use this feature", "format string with a %1$s application-id placeholder")
	flags.String("whitelist-ids-file", "", "optional file of application ids (one per line) bypassing the chain")
	flags.String("store.backend", "sqlite", "store backend (sqlite, postgres)")
	flags.String("store.sqlite.path", "", "sqlite database file path")
	flags.Int("worker-pool-size", brokerconfig.DefaultWorkerPoolSize, "fixed worker pool size")

	if err := cv.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

func runConnect(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := brokerconfig.LoadConnector(v)
	if err != nil {
		return err
	}

	decisionStore, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	whitelistPredicate := agent.Unconfined
	if cfg.WhitelistIDsFile != "" {
		watcher, err := brokerconfig.NewWhitelistWatcher(cfg.WhitelistIDsFile)
		if err != nil {
			return fmt.Errorf("loading whitelist: %w", err)
		}
		go watcher.Run(cmd.Context())
		whitelistPredicate = watcher.Predicate()
	}

	terminal, err := buildTerminalAgent(cfg.LocalAgent)
	if err != nil {
		return err
	}

	chain := agent.NewProductionChain(agent.ChainConfig{
		WhitelistPredicate: whitelistPredicate,
		CurrentUID:         func() request.UID { return request.UID(os.Geteuid()) },
		Store:              decisionStore,
		Prompt:             terminal,
	})

	conn, err := connector.New(connector.Config{
		SocketPath:        cfg.TrustedMirSocket,
		Chain:             chain,
		ResolveLabel:      connector.ResolveAppArmorLabel,
		DescriptionFormat: cfg.DescriptionPattern,
	})
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer conn.Close()

	logger.Info("connector dialed broker", "socket", cfg.TrustedMirSocket, "for_service", cfg.ForService)

	rt := runtime.New(runtime.Config{WorkerPoolSize: cfg.WorkerPoolSize})
	return rt.Run(cmd.Context(), conn)
}

// buildTerminalAgent constructs the terminal agent the production chain
// delegates to on a cache miss, per the local-agent CLI flag.
func buildTerminalAgent(kind brokerconfig.LocalAgentKind) (agent.Agent, error) {
	switch kind {
	case brokerconfig.LocalAgentTerminal:
		return agent.Func{
			FuncName: "terminal_agent",
			Fn: func(_ context.Context, _ request.Parameters) (request.Answer, error) {
				return request.Granted, nil
			},
		}, nil
	case brokerconfig.LocalAgentMir:
		prompt.SetParentPIDFunc(parentPIDViaGopsutil)
		return prompt.NewPromptAgent(prompt.LocalSessionFactory{}, prompt.NewAppInfoResolver(), prompt.ProcessHelperLauncher{}), nil
	default:
		return nil, fmt.Errorf("unknown local-agent %q", kind)
	}
}

// parentPIDViaGopsutil resolves pid's parent, used by the prompt agent's
// session-open fallback when opening a session against pid directly fails
// with the host's "could not identify application session" error.
func parentPIDViaGopsutil(pid request.PID) request.PID {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return pid
	}
	ppid, err := proc.Ppid()
	if err != nil {
		return pid
	}
	return request.PID(ppid)
}
