package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casegate/casegate-backend/internal/adapter/memory"
	"github.com/casegate/casegate-backend/internal/adapter/postgres"
	auditrepo "github.com/casegate/casegate-backend/internal/adapter/postgres/audit"
	draftrepo "github.com/casegate/casegate-backend/internal/adapter/postgres/draft"
	leaserepo "github.com/casegate/casegate-backend/internal/adapter/postgres/lease"
	matterrepo "github.com/casegate/casegate-backend/internal/adapter/postgres/matter"
	sendrepo "github.com/casegate/casegate-backend/internal/adapter/postgres/send"
	"github.com/casegate/casegate-backend/internal/adapter/provider/dispatch"
	"github.com/casegate/casegate-backend/internal/auth"
	"github.com/casegate/casegate-backend/internal/config"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
	"github.com/casegate/casegate-backend/internal/service/anomaly"
	"github.com/casegate/casegate-backend/internal/service/conflict"
	"github.com/casegate/casegate-backend/internal/service/draft"
	"github.com/casegate/casegate-backend/internal/service/ledger"
	"github.com/casegate/casegate-backend/internal/service/sendgate"
	"github.com/casegate/casegate-backend/internal/transport/middleware"
	"github.com/casegate/casegate-backend/internal/transport/rest"
)

// leaseSweepInterval is how often the in-memory lease store purges expired leases.
const leaseSweepInterval = time.Minute

// rateLimiterIdle is how long an idle client's token bucket is kept.
const rateLimiterIdle = 10 * time.Minute

// container holds the wired application graph.
type container struct {
	cfg    *config.Config
	log    *slog.Logger
	engine *policy.Engine
	jwt    *auth.JWTManager
	rest   rest.Handlers
}

func newContainer(cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) (*container, error) {
	rules, err := policy.LoadRules(cfg.Policy.RulesPath)
	if err != nil {
		return nil, err
	}
	engine := policy.NewEngine(rules)

	// Repositories
	auditRepo := auditrepo.New(pool)
	drafts := draftrepo.New(pool)
	matters := matterrepo.New(pool)
	sends := sendrepo.New(pool)
	txm := postgres.NewTxManager(pool)

	lease, err := newLease(cfg.Send, pool)
	if err != nil {
		return nil, err
	}
	transport, err := newTransport(cfg.Send, logger)
	if err != nil {
		return nil, err
	}

	// Services
	guard := access.NewGuard(logger, engine, auditRepo, cfg.Database.WriteTimeout)
	ledgerSvc := ledger.NewService(logger, auditRepo, guard)
	draftSvc := draft.NewService(logger, drafts, matters, guard, txm)
	sendSvc := sendgate.NewService(logger, drafts, matters, sends, lease, transport, guard, txm, cfg.Send)
	conflictSvc := conflict.NewService(logger, matters, conflict.NewMatcher(matters, cfg.Conflict), guard)
	anomalySvc := anomaly.NewService(logger, anomaly.NewDetector(ledgerSvc, cfg.Anomaly.MinQuickCount), guard, cfg.Anomaly)

	return &container{
		cfg:    cfg,
		log:    logger,
		engine: engine,
		jwt:    auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		rest: rest.Handlers{
			Health: rest.NewHealthHandler(BuildVersion(),
				rest.PingCheck("database", pool),
				rest.HealthCheck{Name: "audit_ledger", Check: func(ctx context.Context) error {
					_, _, err := auditRepo.Head(ctx, uuid.Nil)
					return err
				}},
			),
			Drafts:    rest.NewDraftHandler(draftSvc, logger),
			Sends:     rest.NewSendHandler(sendSvc, logger),
			Conflicts: rest.NewConflictHandler(conflictSvc, logger),
			Audit:     rest.NewAuditHandler(ledgerSvc, logger),
			Anomalies: rest.NewAnomalyHandler(anomalySvc, logger),
			Policy:    rest.NewPolicyHandler(engine, logger),
		},
	}, nil
}

func newLease(cfg config.SendConfig, pool *pgxpool.Pool) (sendgate.Lease, error) {
	switch cfg.LeaseBackend {
	case "postgres":
		return leaserepo.New(pool), nil
	case "memory":
		return memory.NewLeaseStore(leaseSweepInterval), nil
	default:
		return nil, fmt.Errorf("unknown lease backend %q", cfg.LeaseBackend)
	}
}

func newTransport(cfg config.SendConfig, logger *slog.Logger) (sendgate.Transmitter, error) {
	switch cfg.TransportMode {
	case "webhook":
		return dispatch.NewWebhook(cfg.TransportURL, cfg.TransportToken, cfg.TransportTimeout, logger), nil
	case "stub":
		return dispatch.NewStub(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport mode %q", cfg.TransportMode)
	}
}

// handler builds the root HTTP handler. Probes bypass auth and rate limiting.
func (c *container) handler() http.Handler {
	api := http.NewServeMux()
	c.rest.Register(api)

	var limiter *middleware.RateLimiter
	if c.cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(c.cfg.RateLimit.PerMinute, c.cfg.RateLimit.Burst, rateLimiterIdle)
	}

	root := http.NewServeMux()
	c.rest.RegisterProbes(root)
	root.Handle("/v1/", middleware.API(c.log, c.jwt, c.cfg.Server.TrustProxy, limiter)(api))
	return root
}
