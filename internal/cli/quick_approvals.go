package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/casegate/casegate-backend/internal/domain"
)

// QuickApprovalsOptions holds flags for the quick-approvals command.
type QuickApprovalsOptions struct {
	*RootOptions
	From      string
	To        string
	Window    time.Duration
	Threshold time.Duration
}

type quickApprovalsResult struct {
	From             time.Time           `json:"from"`
	To               time.Time           `json:"to"`
	ThresholdSeconds float64             `json:"threshold_seconds"`
	Actors           []domain.ActorCount `json:"actors"`
}

// NewQuickApprovalsCommand creates the quick-approvals command.
func NewQuickApprovalsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuickApprovalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "quick-approvals",
		Short: "List actors with unusually many fast approvals or sends",
		Long: `Count approve-draft and execute-send records whose review took less than
--threshold and list actors above the configured minimum.

Examples:
  ledgerctl quick-approvals --tenant <id> --window 24h --threshold 20s
  ledgerctl quick-approvals --tenant <id> --from 2026-01-01T00:00:00Z --to 2026-02-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := opts.window(time.Now().UTC())
			if err != nil {
				return err
			}
			if opts.Threshold <= 0 {
				return NewExitError(ExitCommandError, "--threshold must be positive")
			}

			return opts.withLedger(cmd.Context(), func(l Ledger, tenantID uuid.UUID) error {
				secs := opts.Threshold.Seconds()
				actors, err := l.ScanQuickApprovals(cmd.Context(), tenantID, window, secs)
				if err != nil {
					return WrapExitError(ExitCommandError, "scan quick approvals", err)
				}

				out := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(out, quickApprovalsResult{From: window.From, To: window.To, ThresholdSeconds: secs, Actors: actors})
				}

				fmt.Fprintf(out, "window %s .. %s, threshold %s\n",
					window.From.Format(time.RFC3339), window.To.Format(time.RFC3339), opts.Threshold)
				if len(actors) == 0 {
					fmt.Fprintln(out, "no actors above the minimum")
					return nil
				}
				for _, a := range actors {
					fmt.Fprintf(out, "%s\t%d\n", a.ActorID, a.Count)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "window start, RFC3339 (default: --window before --to)")
	cmd.Flags().StringVar(&opts.To, "to", "", "window end, RFC3339 (default: now)")
	cmd.Flags().DurationVar(&opts.Window, "window", 7*24*time.Hour, "window length when --from is not set")
	cmd.Flags().DurationVar(&opts.Threshold, "threshold", 30*time.Second, "review time below which an approval counts as quick")

	return cmd
}

func (o *QuickApprovalsOptions) window(now time.Time) (domain.Window, error) {
	to := now
	if o.To != "" {
		t, err := time.Parse(time.RFC3339, o.To)
		if err != nil {
			return domain.Window{}, WrapExitError(ExitCommandError, "invalid --to", err)
		}
		to = t
	}

	from := to.Add(-o.Window)
	if o.From != "" {
		t, err := time.Parse(time.RFC3339, o.From)
		if err != nil {
			return domain.Window{}, WrapExitError(ExitCommandError, "invalid --from", err)
		}
		from = t
	}

	if !from.Before(to) {
		return domain.Window{}, NewExitError(ExitCommandError, "window start must be before its end")
	}
	return domain.Window{From: from, To: to}, nil
}
