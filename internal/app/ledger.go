package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casegate/casegate-backend/internal/adapter/postgres"
	auditrepo "github.com/casegate/casegate-backend/internal/adapter/postgres/audit"
	"github.com/casegate/casegate-backend/internal/cli"
	"github.com/casegate/casegate-backend/internal/config"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
	"github.com/casegate/casegate-backend/internal/service/anomaly"
	"github.com/casegate/casegate-backend/internal/service/ledger"
)

// LedgerTools is the operator view of the audit ledger.
type LedgerTools struct {
	*ledger.Service
	*anomaly.Detector
}

// OpenLedger connects to the database named by the loaded configuration and
// returns the ledger read side used by ledgerctl.
func OpenLedger(ctx context.Context) (cli.Ledger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := NewLogger(config.LogConfig{Level: "warn", Format: cfg.Log.Format})

	rules, err := policy.LoadRules(cfg.Policy.RulesPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	repo := auditrepo.New(pool)
	guard := access.NewGuard(logger, policy.NewEngine(rules), repo, cfg.Database.WriteTimeout)
	svc := ledger.NewService(logger, repo, guard)

	logger.Debug("ledger opened", slog.Int("min_quick_count", cfg.Anomaly.MinQuickCount))

	return LedgerTools{
		Service:  svc,
		Detector: anomaly.NewDetector(svc, cfg.Anomaly.MinQuickCount),
	}, pool.Close, nil
}
