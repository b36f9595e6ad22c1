package sendgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

const action = domain.ActionExecuteSend

// ExecuteSend transmits an approved draft to a recipient. Repeating a send
// that already succeeded returns the existing SendRecord without a second
// transmission or audit record.
func (s *Service) ExecuteSend(ctx context.Context, input ExecuteSendInput) (*domain.SendRecord, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	key := input.key()

	d, m, err := s.load(ctx, actor, action, key.DraftID)
	if err != nil {
		return nil, err
	}

	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, action, resourceRef(m), subj); err != nil {
		return nil, err
	}

	if existing, err := s.existing(ctx, actor, key); err != nil || existing != nil {
		return existing, err
	}

	sendID := uuid.New()
	detail := map[string]any{
		domain.DetailSendRecordID: sendID.String(),
		domain.DetailDraftID:      d.ID.String(),
		domain.DetailRecipient:    key.Recipient,
		domain.DetailMethod:       string(key.Method),
	}

	if err := s.lease.Acquire(ctx, actor.TenantID, d.ID, sendID, s.cfg.LeaseTTL); err != nil {
		if errors.Is(err, domain.ErrSendInProgress) {
			return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
		}
		return nil, fmt.Errorf("acquire send lease: %w", err)
	}
	defer s.release(ctx, d.ID, sendID)

	// Another holder may have finished between the first check and the lease.
	if existing, err := s.existing(ctx, actor, key); err != nil || existing != nil {
		return existing, err
	}
	d, err = s.drafts.GetByID(ctx, actor.TenantID, d.ID)
	if err != nil {
		return nil, fmt.Errorf("reload draft: %w", err)
	}
	detail[domain.DetailVersion] = d.Version

	if err := checkSendable(d, input.Acknowledgments); err != nil {
		return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
	}

	receipt, err := s.transmit(ctx, domain.Transmission{
		SendID:    sendID,
		TenantID:  d.TenantID,
		DraftID:   d.ID,
		MatterID:  d.MatterID,
		DraftType: d.Type,
		Version:   d.Version,
		Recipient: key.Recipient,
		Method:    key.Method,
		Content:   d.Content,
	})
	if err != nil {
		s.log.WarnContext(ctx, "transmission failed",
			slog.String("send_id", sendID.String()),
			slog.String("draft_id", d.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
	}

	now := s.now().UTC()
	detail["transport_receipt"] = receipt.Reference
	detail[domain.DetailReviewDurationSeconds] = sinceApproval(d, now)

	rec, err := s.commit(ctx, actor, subj, &domain.SendRecord{
		ID:               sendID,
		TenantID:         d.TenantID,
		DraftID:          d.ID,
		MatterID:         d.MatterID,
		Recipient:        key.Recipient,
		Method:           key.Method,
		AuthorizedBy:     actor.ID,
		TransportReceipt: receipt.Reference,
		CreatedAt:        now,
	}, detail)
	if err != nil {
		return nil, s.reconcile(ctx, actor, subj, sendID, err, detail)
	}

	s.log.InfoContext(ctx, "draft sent",
		slog.String("send_id", rec.ID.String()),
		slog.String("draft_id", d.ID.String()),
		slog.String("method", string(rec.Method)),
		slog.String("actor_id", actor.ID.String()),
	)
	return rec, nil
}

// existing returns the committed send for key, or nil.
func (s *Service) existing(ctx context.Context, actor domain.Actor, key domain.SendKey) (*domain.SendRecord, error) {
	rec, err := s.sends.GetByKey(ctx, actor.TenantID, key)
	if err == nil {
		s.log.InfoContext(ctx, "send already executed",
			slog.String("send_id", rec.ID.String()),
			slog.String("draft_id", key.DraftID.String()),
		)
		return rec, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("get send record: %w", err)
}

func checkSendable(d *domain.Draft, acks domain.Acknowledgments) error {
	if !d.Status.IsApproved() {
		return fmt.Errorf("draft %s is %s: %w", d.ID, d.Status, domain.ErrDraftNotApproved)
	}
	if pending := d.UnacknowledgedFlags(); len(pending) > 0 {
		return fmt.Errorf("draft %s: %d flags: %w", d.ID, len(pending), domain.ErrUnacknowledgedFlags)
	}
	if missing := acks.Missing(); len(missing) > 0 {
		return domain.NewValidationError("acknowledgments", "missing "+strings.Join(missing, ", "))
	}
	return nil
}

// transmit calls the transport once, detached from the caller and bounded by
// the transport timeout.
func (s *Service) transmit(ctx context.Context, t domain.Transmission) (domain.Receipt, error) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TransportTimeout)
	defer cancel()

	receipt, err := s.transport.Transmit(tctx, t)
	if err == nil && receipt.Reference == "" {
		err = errors.New("empty transport receipt")
	}
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			return domain.Receipt{}, err
		}
		return domain.Receipt{}, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return receipt, nil
}

// commit writes the SendRecord and its SUCCESS audit record atomically, but
// only while the send still holds its lease.
func (s *Service) commit(ctx context.Context, actor domain.Actor, subj access.Subject, send *domain.SendRecord, detail map[string]any) (*domain.SendRecord, error) {
	ctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	var created *domain.SendRecord
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.lease.Renew(txCtx, send.DraftID, send.ID, s.cfg.LeaseTTL); err != nil {
			return fmt.Errorf("renew send lease: %w", err)
		}
		audit, err := s.guard.Record(txCtx, actor, action, domain.OutcomeSuccess, subj, detail)
		if err != nil {
			return err
		}
		send.AuditRecordID = audit.ID
		created, err = s.sends.Create(txCtx, send)
		if err != nil {
			return fmt.Errorf("create send record: %w", err)
		}
		return nil
	})
	return created, err
}

// reconcile handles a transmission that happened but could not be committed.
// The FAILURE record is best effort; the returned error is always
// domain.ErrReconciliationRequired.
func (s *Service) reconcile(ctx context.Context, actor domain.Actor, subj access.Subject, sendID uuid.UUID, cause error, detail map[string]any) error {
	err := fmt.Errorf("send %s: %w: %w", sendID, domain.ErrReconciliationRequired, domain.NewAuditWriteError(cause))

	s.log.ErrorContext(ctx, "transmission not committed, reconciliation required",
		slog.String("send_id", sendID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Any("receipt", detail["transport_receipt"]),
		slog.String("error", cause.Error()),
	)

	d := maps.Clone(detail)
	d[domain.DetailReconciliation] = true
	_ = s.guard.Fail(ctx, actor, action, subj, err, d)
	return err
}

func (s *Service) release(ctx context.Context, draftID, holder uuid.UUID) {
	ctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	if err := s.lease.Release(ctx, draftID, holder); err != nil {
		s.log.WarnContext(ctx, "release send lease",
			slog.String("draft_id", draftID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// sinceApproval is the time between the approving transition and now, in
// seconds. Drafts without a recorded transition fall back to VersionedAt.
func sinceApproval(d *domain.Draft, now time.Time) float64 {
	from := d.VersionedAt
	if d.LastTransitionedAt != nil {
		from = *d.LastTransitionedAt
	}
	secs := now.Sub(from).Seconds()
	if secs < 0 {
		return 0
	}
	return secs
}
