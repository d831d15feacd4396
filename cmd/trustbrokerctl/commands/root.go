// Package commands implements trustbrokerctl's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "trustbrokerctl",
	Short:         "Trust broker connector and cache inspection tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("trustbrokerctl %s (commit %s)\n", version, commit)
			return nil
		},
	}
}
