// Package sendgate executes outward transmissions of approved drafts. A send
// happens at most once per (draft, recipient, method) and never without a
// matching audit record.
package sendgate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/config"
	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// Transmitter delivers a transmission to the outside world. A nil error
// means the transmission was definitively accepted.
type Transmitter interface {
	Transmit(ctx context.Context, t domain.Transmission) (domain.Receipt, error)
}

// Lease grants short-lived per-draft exclusivity. Renew fails with
// domain.ErrLeaseLost once the holder no longer owns the lease.
type Lease interface {
	Acquire(ctx context.Context, tenantID, draftID, holder uuid.UUID, ttl time.Duration) error
	Renew(ctx context.Context, draftID, holder uuid.UUID, ttl time.Duration) error
	Release(ctx context.Context, draftID, holder uuid.UUID) error
}

type draftRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Draft, error)
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type matterRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Matter, error)
}

type sendRepo interface {
	Create(ctx context.Context, rec *domain.SendRecord) (*domain.SendRecord, error)
	GetByKey(ctx context.Context, tenantID uuid.UUID, key domain.SendKey) (*domain.SendRecord, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.SendRecord, error)
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListByDraft(ctx context.Context, tenantID, draftID uuid.UUID) ([]domain.SendRecord, error)
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

// Service coordinates send execution.
type Service struct {
	drafts    draftRepo
	matters   matterRepo
	sends     sendRepo
	lease     Lease
	transport Transmitter
	guard     guard
	tx        txManager
	cfg       config.SendConfig
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates a new send-gate Service.
func NewService(
	log *slog.Logger,
	drafts draftRepo,
	matters matterRepo,
	sends sendRepo,
	lease Lease,
	transport Transmitter,
	guard guard,
	tx txManager,
	cfg config.SendConfig,
) *Service {
	return &Service{
		drafts:    drafts,
		matters:   matters,
		sends:     sends,
		lease:     lease,
		transport: transport,
		guard:     guard,
		tx:        tx,
		cfg:       cfg,
		log:       log.With("service", "sendgate"),
		now:       time.Now,
	}
}

// load returns the draft and its matter. A draft of another tenant is denied
// for action.
func (s *Service) load(ctx context.Context, actor domain.Actor, action domain.Action, draftID uuid.UUID) (*domain.Draft, *domain.Matter, error) {
	d, err := s.drafts.GetByID(ctx, actor.TenantID, draftID)
	if err != nil {
		subj := access.ResourceSubject(domain.ResourceTypeDraft, draftID)
		return nil, nil, s.guard.DenyForeign(ctx, actor, action, subj, s.drafts.TenantOf, fmt.Errorf("get draft: %w", err))
	}
	m, err := s.matters.GetByID(ctx, actor.TenantID, d.MatterID)
	if err != nil {
		return nil, nil, fmt.Errorf("get matter: %w", err)
	}
	return d, m, nil
}

func resourceRef(m *domain.Matter) policy.ResourceRef {
	return policy.ResourceRef{TenantID: m.TenantID, OwnerID: m.AssignedProfessionalID}
}
