package commands

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/trustbrokerd/trustbroker/internal/cli/output"
)

// sessionView mirrors internal/adminhttp.SessionView's JSON shape without
// importing that package, since this CLI only ever reaches it over HTTP.
type sessionView struct {
	UID uint32 `json:"uid"`
	PID int32  `json:"pid"`
	GID uint32 `json:"gid"`
}

func newSessionsCmd() *cobra.Command {
	var adminAddr string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Dump the broker's active connector sessions (requires the admin diagnostic surface)",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("http://%s/debug/sessions", adminAddr)
			resp, err := http.Get(url)
			if err != nil {
				return fmt.Errorf("querying %s: %w", url, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("querying %s: unexpected status %d", url, resp.StatusCode)
			}

			var views []sessionView
			if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			table := output.NewTableData("UID", "PID", "GID")
			for _, v := range views {
				table.AddRow(fmt.Sprintf("%d", v.UID), fmt.Sprintf("%d", v.PID), fmt.Sprintf("%d", v.GID))
			}
			return output.PrintTable(cmd.OutOrStdout(), table)
		},
	}

	cmd.Flags().StringVar(&adminAddr, "admin-addr", "127.0.0.1:9091", "broker's admin diagnostic surface address")
	return cmd
}
