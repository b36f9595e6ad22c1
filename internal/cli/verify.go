package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute a tenant's hash chain and report the first break",
		Long: `Recompute a tenant's audit hash chain in sequence order.

Exit codes:
  0 - chain intact
  1 - chain broken
  2 - command error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l Ledger, tenantID uuid.UUID) error {
				report, err := l.Verify(cmd.Context(), tenantID)
				if err != nil {
					return WrapExitError(ExitCommandError, "verify chain", err)
				}

				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					if err := writeJSON(out, report); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(out, "tenant %s: %d records, head seq %d\n", report.TenantID, report.Records, report.HeadSeq)
					if report.OK {
						fmt.Fprintln(out, "chain OK")
					} else {
						fmt.Fprintf(out, "chain BROKEN at seq %d: %s\n", report.Break.Seq, report.Break.Reason)
					}
				}

				if !report.OK {
					return NewExitError(ExitFailure, "audit chain broken")
				}
				return nil
			})
		},
	}
}
