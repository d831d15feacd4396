package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trustbrokerd/trustbroker/internal/cli/output"
	"github.com/trustbrokerd/trustbroker/internal/cli/prompt"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/store"
	"github.com/trustbrokerd/trustbroker/internal/storeapi"
)

func newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset a service's decision cache",
	}
	cache.AddCommand(newCacheListCmd())
	cache.AddCommand(newCacheResetCmd())
	return cache
}

// newCacheListCmd's store flags and newCacheResetCmd's endpoint flag
// reflect the store-exposure endpoint's no-query surface: list reads
// the store's own backing file directly, while reset mutates it only
// through the endpoint, matching the access control the broker enforces
// on the socket.
func newCacheListCmd() *cobra.Command {
	v := viper.New()
	var appID string
	var feature uint64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached decisions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeCfg := store.Config{
				ServiceName: v.GetString("for-service"),
				Backend:     store.BackendType(v.GetString("store.backend")),
				SQLite:      store.SQLiteConfig{Path: v.GetString("store.sqlite.path")},
			}

			decisionStore, err := store.New(storeCfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}

			q := decisionStore.Query()
			if appID != "" {
				q = q.ForApplicationID(request.ApplicationID(appID))
			}
			if feature != 0 {
				q = q.ForFeature(request.Feature(feature))
			}
			if err := q.Execute(); err != nil {
				return err
			}

			table := output.NewTableData("APPLICATION ID", "FEATURE", "ANSWER", "WHEN")
			for q.HasMore() {
				rec, err := q.Current()
				if err != nil {
					return err
				}
				table.AddRow(
					string(rec.From),
					fmt.Sprintf("%d", rec.Feature),
					rec.Answer.String(),
					time.Unix(0, rec.When).Local().Format(time.RFC3339),
				)
				if err := q.Next(); err != nil {
					return err
				}
			}

			return output.PrintTable(cmd.OutOrStdout(), table)
		},
	}

	flags := cmd.Flags()
	flags.String("store.backend", "sqlite", "store backend (sqlite, postgres)")
	flags.String("store.sqlite.path", "", "sqlite database file path")
	flags.String("for-service", "", "host service whose cache to inspect")
	flags.StringVar(&appID, "application-id", "", "restrict to one application id")
	flags.Uint64Var(&feature, "feature", 0, "restrict to one feature id")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

func newCacheResetCmd() *cobra.Command {
	v := viper.New()
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard every cached decision for a service, through the store-exposure endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			forService := v.GetString("for-service")
			ok, err := prompt.ConfirmWithForce(fmt.Sprintf("reset the cache for %q", forService), force)
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("aborted")
				return nil
			}

			socket := v.GetString("endpoint")
			if socket == "" {
				socket = fmt.Sprintf("/run/trustbroker/%s.storeapi.sock", forService)
			}
			client, err := storeapi.Dial(socket)
			if err != nil {
				return fmt.Errorf("dialing store-exposure endpoint: %w", err)
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), storeapi.DefaultTimeout)
			defer cancel()
			if err := client.Reset(ctx); err != nil {
				return fmt.Errorf("resetting cache: %w", err)
			}

			cmd.Println("cache reset")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("for-service", "", "host service whose cache to reset")
	flags.String("endpoint", "", "store-exposure endpoint socket path (defaults to a path derived from for-service)")
	flags.BoolVar(&force, "force", false, "skip the confirmation prompt")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}
