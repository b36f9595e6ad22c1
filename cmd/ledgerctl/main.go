// Command ledgerctl inspects the audit ledger directly from the database.
//
// Usage:
//
//	ledgerctl verify --tenant=<uuid>
//	ledgerctl replay --tenant=<uuid> [--format=json]
//	ledgerctl quick-approvals --tenant=<uuid> [--window=168h] [--threshold=30s]
//
// Reads the same configuration as the server; DATABASE_DSN is required.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/casegate/casegate-backend/internal/app"
	"github.com/casegate/casegate-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCommand(app.OpenLedger).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
