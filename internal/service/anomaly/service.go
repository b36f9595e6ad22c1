package anomaly

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/config"
	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

const maxWindow = 366 * 24 * time.Hour

type quickApprovalScanner interface {
	ScanQuickApprovals(ctx context.Context, tenantID uuid.UUID, window domain.Window, thresholdSeconds float64) ([]domain.ActorCount, error)
}

type guard interface {
	Actor(ctx context.Context) (domain.Actor, error)
	Check(ctx context.Context, actor domain.Actor, action domain.Action, res policy.ResourceRef, subj access.Subject) error
	Record(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj access.Subject, detail map[string]any) (domain.AuditRecord, error)
	Fail(ctx context.Context, actor domain.Actor, action domain.Action, subj access.Subject, cause error, detail map[string]any) error
	Detach(ctx context.Context) (context.Context, context.CancelFunc)
}

// Service runs audited anomaly scans.
type Service struct {
	scanner quickApprovalScanner
	guard   guard
	cfg     config.AnomalyConfig
	log     *slog.Logger
	now     func() time.Time
}

// NewService creates a new anomaly Service.
func NewService(log *slog.Logger, scanner quickApprovalScanner, guard guard, cfg config.AnomalyConfig) *Service {
	return &Service{
		scanner: scanner,
		guard:   guard,
		cfg:     cfg,
		log:     log.With("service", "anomaly"),
		now:     time.Now,
	}
}

// ScanInput selects the scan window and threshold. Zero values take the
// configured defaults: the window ends now and spans the default window.
type ScanInput struct {
	From      *time.Time
	To        *time.Time
	Threshold time.Duration
}

// ScanResult is the outcome of a quick-approval scan.
type ScanResult struct {
	Window           domain.Window       `json:"-"`
	ThresholdSeconds float64             `json:"threshold_seconds"`
	MinCount         int                 `json:"min_count"`
	Actors           []domain.ActorCount `json:"actors"`
}

func (s *Service) resolve(input ScanInput) (domain.Window, time.Duration, error) {
	to := s.now().UTC()
	if input.To != nil {
		to = input.To.UTC()
	}
	from := to.Add(-s.cfg.DefaultWindow)
	if input.From != nil {
		from = input.From.UTC()
	}
	threshold := input.Threshold
	if threshold == 0 {
		threshold = s.cfg.DefaultThreshold
	}

	var errs []domain.FieldError
	if !from.Before(to) {
		errs = append(errs, domain.FieldError{Field: "from", Message: "must be before to"})
	} else if to.Sub(from) > maxWindow {
		errs = append(errs, domain.FieldError{Field: "from", Message: "window exceeds 366 days"})
	}
	if threshold <= 0 {
		errs = append(errs, domain.FieldError{Field: "threshold", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return domain.Window{}, 0, &domain.ValidationError{Errors: errs}
	}
	return domain.Window{From: from, To: to}, threshold, nil
}

// Scan runs ScanQuickApprovals for the actor's tenant. The scan is recorded.
func (s *Service) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	window, threshold, err := s.resolve(input)
	if err != nil {
		return nil, err
	}

	const action = domain.ActionScanAnomalies
	subj := access.Subject{ResourceType: domain.ResourceTypeAuditLog}
	if err := s.guard.Check(ctx, actor, action, policy.ResourceRef{TenantID: actor.TenantID}, subj); err != nil {
		return nil, err
	}

	detail := map[string]any{
		"from":              window.From.Format(time.RFC3339Nano),
		"to":                window.To.Format(time.RFC3339Nano),
		"threshold_seconds": threshold.Seconds(),
		"min_count":         s.cfg.MinQuickCount,
	}

	actors, err := s.scanner.ScanQuickApprovals(ctx, actor.TenantID, window, threshold.Seconds())
	if err != nil {
		return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
	}

	detail["flagged_actors"] = len(actors)
	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	if _, err := s.guard.Record(dctx, actor, action, domain.OutcomeSuccess, subj, detail); err != nil {
		return nil, err
	}

	if len(actors) > 0 {
		s.log.WarnContext(ctx, "quick approvals detected",
			slog.String("tenant_id", actor.TenantID.String()),
			slog.Int("actors", len(actors)),
			slog.Float64("threshold_seconds", threshold.Seconds()),
		)
	}
	return &ScanResult{
		Window:           window,
		ThresholdSeconds: threshold.Seconds(),
		MinCount:         s.cfg.MinQuickCount,
		Actors:           actors,
	}, nil
}
