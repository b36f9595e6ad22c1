// Package draft implements the draft approval workflow:
// PENDING -> {APPROVED, MODIFIED_APPROVED, REJECTED}, all terminal.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

type draftRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Draft, error)
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, d *domain.Draft) (*domain.Draft, error)
	Transition(ctx context.Context, t domain.DraftTransition) (*domain.Draft, error)
	UpdateFlags(ctx context.Context, tenantID, draftID uuid.UUID, expectedVersion int, flags []domain.Flag) (*domain.Draft, error)
	SaveRevision(ctx context.Context, rev domain.DraftRevision) error
	ListRevisions(ctx context.Context, tenantID, draftID uuid.UUID) ([]domain.DraftRevision, error)
}

type matterRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Matter, error)
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type guard interface {
	Actor(ctx context.Context) (domain.Actor, error)
	Check(ctx context.Context, actor domain.Actor, action domain.Action, res policy.ResourceRef, subj access.Subject) error
	DenyForeign(ctx context.Context, actor domain.Actor, action domain.Action, subj access.Subject, locate access.Locator, cause error) error
	Record(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj access.Subject, detail map[string]any) (domain.AuditRecord, error)
	Fail(ctx context.Context, actor domain.Actor, action domain.Action, subj access.Subject, cause error, detail map[string]any) error
	Detach(ctx context.Context) (context.Context, context.CancelFunc)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service provides draft workflow operations.
type Service struct {
	drafts  draftRepo
	matters matterRepo
	guard   guard
	tx      txManager
	log     *slog.Logger
	now     func() time.Time
}

// NewService creates a new draft Service.
func NewService(
	log *slog.Logger,
	drafts draftRepo,
	matters matterRepo,
	guard guard,
	tx txManager,
) *Service {
	return &Service{
		drafts:  drafts,
		matters: matters,
		guard:   guard,
		tx:      tx,
		log:     log.With("service", "draft"),
		now:     time.Now,
	}
}

// load returns the draft and the resource reference of its matter. A draft of
// another tenant is denied for action.
func (s *Service) load(ctx context.Context, actor domain.Actor, action domain.Action, draftID uuid.UUID) (*domain.Draft, policy.ResourceRef, error) {
	d, err := s.drafts.GetByID(ctx, actor.TenantID, draftID)
	if err != nil {
		subj := access.ResourceSubject(domain.ResourceTypeDraft, draftID)
		return nil, policy.ResourceRef{}, s.guard.DenyForeign(ctx, actor, action, subj, s.drafts.TenantOf, fmt.Errorf("get draft: %w", err))
	}
	m, err := s.matters.GetByID(ctx, actor.TenantID, d.MatterID)
	if err != nil {
		return nil, policy.ResourceRef{}, fmt.Errorf("get matter: %w", err)
	}
	return d, policy.ResourceRef{TenantID: m.TenantID, OwnerID: m.AssignedProfessionalID}, nil
}

// checkPending enforces the state machine and the caller's view of the version.
func checkPending(d *domain.Draft, version int) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("draft %s is %s: %w", d.ID, d.Status, domain.ErrInvalidTransition)
	}
	if d.Version != version {
		return fmt.Errorf("draft %s is at version %d, not %d: %w", d.ID, d.Version, version, domain.ErrStaleVersion)
	}
	return nil
}

// transition applies t and records the SUCCESS record in one transaction.
// A lost compare-and-swap is recorded as a FAILURE.
func (s *Service) transition(
	ctx context.Context,
	actor domain.Actor,
	action domain.Action,
	d *domain.Draft,
	t domain.DraftTransition,
	revision *domain.DraftRevision,
	detail map[string]any,
) (*domain.Draft, error) {
	ctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	subj := access.DraftSubject(d)

	var updated *domain.Draft
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.drafts.Transition(txCtx, t)
		if err != nil {
			return fmt.Errorf("transition draft: %w", err)
		}
		if revision != nil {
			if err := s.drafts.SaveRevision(txCtx, *revision); err != nil {
				return fmt.Errorf("save revision: %w", err)
			}
		}
		_, err = s.guard.Record(txCtx, actor, action, domain.OutcomeSuccess, subj, detail)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return nil, s.guard.Fail(ctx, actor, action, subj, err, map[string]any{domain.DetailVersion: t.ExpectedVersion})
		}
		return nil, err
	}
	return updated, nil
}
