package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// DraftState is a draft's workflow state as reconstructed from the ledger.
type DraftState struct {
	DraftID     uuid.UUID          `json:"draft_id"`
	MatterID    uuid.UUID          `json:"matter_id"`
	Status      domain.DraftStatus `json:"status"`
	Version     int                `json:"version"`
	LastActorID *uuid.UUID         `json:"last_actor_id,omitempty"`
	LastAt      time.Time          `json:"last_at"`
}

// SendState is a transmission as reconstructed from the ledger.
// Reconciliation marks a transmission whose send record was never committed.
type SendState struct {
	SendRecordID   uuid.UUID         `json:"send_record_id"`
	DraftID        uuid.UUID         `json:"draft_id"`
	Recipient      string            `json:"recipient"`
	Method         domain.SendMethod `json:"method"`
	AuthorizedBy   *uuid.UUID        `json:"authorized_by,omitempty"`
	AuditRecordID  uuid.UUID         `json:"audit_record_id"`
	At             time.Time         `json:"at"`
	Reconciliation bool              `json:"reconciliation,omitempty"`
}

// State is the draft and send state of a tenant rebuilt purely from its
// audit records.
type State struct {
	TenantID    uuid.UUID                 `json:"tenant_id"`
	Records     int                       `json:"records"`
	Drafts      map[uuid.UUID]*DraftState `json:"drafts"`
	Sends       []SendState               `json:"sends"`
	Corrections int                       `json:"corrections"`
}

// Replay rebuilds draft statuses and send records of a tenant from its ledger.
func (s *Service) Replay(ctx context.Context, tenantID uuid.UUID) (*State, error) {
	st := &State{TenantID: tenantID, Drafts: map[uuid.UUID]*DraftState{}}

	for rec, err := range s.All(ctx, domain.AuditFilter{TenantID: tenantID}) {
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		st.Records++
		st.apply(rec)
	}
	return st, nil
}

func (st *State) apply(rec domain.AuditRecord) {
	if rec.CorrectsID != nil {
		st.Corrections++
		return
	}

	switch rec.Action {
	case domain.ActionCreateDraft, domain.ActionApproveDraft, domain.ActionRejectDraft:
		if rec.Outcome != domain.OutcomeSuccess || rec.ResourceID == nil {
			return
		}
		to, _ := domain.DetailString(rec.Detail, domain.DetailToStatus)
		version, _ := domain.DetailFloat(rec.Detail, domain.DetailVersion)

		d, ok := st.Drafts[*rec.ResourceID]
		if !ok {
			d = &DraftState{DraftID: *rec.ResourceID}
			st.Drafts[d.DraftID] = d
		}
		if rec.MatterID != nil {
			d.MatterID = *rec.MatterID
		}
		d.Status = domain.DraftStatus(to)
		d.Version = int(version)
		d.LastActorID = rec.ActorID
		d.LastAt = rec.OccurredAt

	case domain.ActionExecuteSend:
		reconcile := rec.Detail[domain.DetailReconciliation] == true
		if rec.Outcome != domain.OutcomeSuccess && !reconcile {
			return
		}
		sendID, _ := domain.DetailString(rec.Detail, domain.DetailSendRecordID)
		draftID, _ := domain.DetailString(rec.Detail, domain.DetailDraftID)
		recipient, _ := domain.DetailString(rec.Detail, domain.DetailRecipient)
		method, _ := domain.DetailString(rec.Detail, domain.DetailMethod)

		st.Sends = append(st.Sends, SendState{
			SendRecordID:   parseUUID(sendID),
			DraftID:        parseUUID(draftID),
			Recipient:      recipient,
			Method:         domain.SendMethod(method),
			AuthorizedBy:   rec.ActorID,
			AuditRecordID:  rec.ID,
			At:             rec.OccurredAt,
			Reconciliation: reconcile,
		})
	}
}

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
