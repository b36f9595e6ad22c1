package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/casegate/casegate-backend/internal/domain"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild draft and send state from the ledger alone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l Ledger, tenantID uuid.UUID) error {
				st, err := l.Replay(cmd.Context(), tenantID)
				if err != nil {
					return WrapExitError(ExitCommandError, "replay ledger", err)
				}

				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(out, st)
				}

				byStatus := map[domain.DraftStatus]int{}
				for _, d := range st.Drafts {
					byStatus[d.Status]++
				}
				reconciled := 0
				for _, s := range st.Sends {
					if s.Reconciliation {
						reconciled++
					}
				}

				fmt.Fprintf(out, "tenant %s: %d records replayed\n", st.TenantID, st.Records)
				fmt.Fprintf(out, "drafts: %d\n", len(st.Drafts))
				for status := range sortedKeys(byStatus) {
					fmt.Fprintf(out, "  %s: %d\n", status, byStatus[status])
				}
				fmt.Fprintf(out, "sends: %d (%d need reconciliation)\n", len(st.Sends), reconciled)
				fmt.Fprintf(out, "corrections: %d\n", st.Corrections)
				return nil
			})
		},
	}
}
