package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

const maxReasonLength = 2000

type matterRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Matter, error)
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type conflictFinder interface {
	FindConflicts(ctx context.Context, tenantID, matterID uuid.UUID) (*domain.ConflictReport, error)
}

type guard interface {
	Actor(ctx context.Context) (domain.Actor, error)
	Check(ctx context.Context, actor domain.Actor, action domain.Action, res policy.ResourceRef, subj access.Subject) error
	DenyForeign(ctx context.Context, actor domain.Actor, action domain.Action, subj access.Subject, locate access.Locator, cause error) error
	Record(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj access.Subject, detail map[string]any) (domain.AuditRecord, error)
	Fail(ctx context.Context, actor domain.Actor, action domain.Action, subj access.Subject, cause error, detail map[string]any) error
	Detach(ctx context.Context) (context.Context, context.CancelFunc)
}

// Service runs audited conflict checks and records decisions on them.
type Service struct {
	matters matterRepo
	matcher conflictFinder
	guard   guard
	log     *slog.Logger
}

// NewService creates a new conflict Service.
func NewService(log *slog.Logger, matters matterRepo, matcher conflictFinder, guard guard) *Service {
	return &Service{
		matters: matters,
		matcher: matcher,
		guard:   guard,
		log:     log.With("service", "conflict"),
	}
}

// DecideInput holds a human decision on a matter's conflict check.
type DecideInput struct {
	MatterID uuid.UUID
	Decision domain.ConflictDecision
	Reason   string
}

// Validate checks all fields and collects all errors.
func (i DecideInput) Validate() error {
	var errs []domain.FieldError

	if i.MatterID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "matter_id", Message: "required"})
	}
	if !i.Decision.IsValid() {
		errs = append(errs, domain.FieldError{Field: "decision", Message: "must be cleared, waived or declined"})
	}
	reason := strings.TrimSpace(i.Reason)
	if reason == "" {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "required"})
	}
	if len(reason) > maxReasonLength {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "max 2000 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// Decision is a recorded conflict decision together with the automated
// result it was made against.
type Decision struct {
	AuditRecordID uuid.UUID
	Decision      domain.ConflictDecision
	Reason        string
	Report        *domain.ConflictReport
}

// RunCheck runs the matcher for a matter. The check is recorded together with
// the candidates it returned.
func (s *Service) RunCheck(ctx context.Context, matterID uuid.UUID) (*domain.ConflictReport, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if matterID == uuid.Nil {
		return nil, domain.NewValidationError("matter_id", "required")
	}

	const action = domain.ActionRunConflictCheck
	report, subj, err := s.check(ctx, actor, action, matterID)
	if err != nil {
		return nil, err
	}

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	if _, err := s.guard.Record(dctx, actor, action, domain.OutcomeSuccess, subj, reportDetail(report)); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "conflict check run",
		slog.String("matter_id", matterID.String()),
		slog.Int("candidates", len(report.Candidates)),
	)
	return report, nil
}

// Decide records a decision on a matter's conflicts. The matcher is re-run
// so the stored candidate list is the server's, not the caller's.
func (s *Service) Decide(ctx context.Context, input DecideInput) (*Decision, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	const action = domain.ActionDecideConflictCheck
	report, subj, err := s.check(ctx, actor, action, input.MatterID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	detail := reportDetail(report)
	detail["decision"] = string(input.Decision)
	detail[domain.DetailReason] = reason

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	rec, err := s.guard.Record(dctx, actor, action, domain.OutcomeSuccess, subj, detail)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "conflict decision recorded",
		slog.String("matter_id", input.MatterID.String()),
		slog.String("decision", string(input.Decision)),
		slog.Int("candidates", len(report.Candidates)),
		slog.String("actor_id", actor.ID.String()),
	)
	return &Decision{AuditRecordID: rec.ID, Decision: input.Decision, Reason: reason, Report: report}, nil
}

// check authorizes action on the matter and runs the matcher.
func (s *Service) check(ctx context.Context, actor domain.Actor, action domain.Action, matterID uuid.UUID) (*domain.ConflictReport, access.Subject, error) {
	subj := access.MatterSubject(matterID)
	m, err := s.matters.GetByID(ctx, actor.TenantID, matterID)
	if err != nil {
		return nil, subj, s.guard.DenyForeign(ctx, actor, action, subj, s.matters.TenantOf, fmt.Errorf("get matter: %w", err))
	}

	ref := policy.ResourceRef{TenantID: m.TenantID, OwnerID: m.AssignedProfessionalID}
	if err := s.guard.Check(ctx, actor, action, ref, subj); err != nil {
		return nil, subj, err
	}

	report, err := s.matcher.FindConflicts(ctx, actor.TenantID, m.ID)
	if err != nil {
		return nil, subj, s.guard.Fail(ctx, actor, action, subj, fmt.Errorf("find conflicts: %w", err), nil)
	}
	return report, subj, nil
}

func reportDetail(r *domain.ConflictReport) map[string]any {
	counts := map[string]int{}
	for _, c := range r.Candidates {
		counts[string(c.Type)]++
	}
	detail := map[string]any{
		"candidate_count": len(r.Candidates),
		"by_type":         counts,
		"candidates":      r.Candidates,
	}
	if len(r.Truncated) > 0 {
		detail["truncated"] = r.Truncated
	}
	return detail
}
