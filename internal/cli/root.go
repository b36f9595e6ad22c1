// Package cli implements ledgerctl, the operator command line for the audit
// ledger: chain verification, state replay and quick-approval scans.
package cli

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/ledger"
)

// Ledger is the read side of the audit ledger the commands operate on.
type Ledger interface {
	Verify(ctx context.Context, tenantID uuid.UUID) (ledger.ChainReport, error)
	Replay(ctx context.Context, tenantID uuid.UUID) (*ledger.State, error)
	ScanQuickApprovals(ctx context.Context, tenantID uuid.UUID, window domain.Window, thresholdSeconds float64) ([]domain.ActorCount, error)
}

// Opener connects to the ledger. The returned func releases its resources.
type Opener func(ctx context.Context) (Ledger, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string
	Tenant string

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the ledgerctl root command.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and verify the audit ledger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewQuickApprovalsCommand(opts))

	return cmd
}

func (o *RootOptions) tenantID() (uuid.UUID, error) {
	id, err := uuid.Parse(o.Tenant)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid tenant id %q", o.Tenant))
	}
	return id, nil
}

// withLedger parses the tenant, opens the ledger and runs fn.
func (o *RootOptions) withLedger(ctx context.Context, fn func(l Ledger, tenantID uuid.UUID) error) error {
	tenantID, err := o.tenantID()
	if err != nil {
		return err
	}
	l, closeFn, err := o.open(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "open ledger", err)
	}
	defer closeFn()
	return fn(l, tenantID)
}

func sortedKeys[K ~string, V any](m map[K]V) iter.Seq[K] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return slices.Values(keys)
}
