package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

func TestReplay(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()
	tenant := uuid.New()
	actor := uuid.New()
	role := domain.RoleSupervisingProfessional
	matterID := uuid.New()
	approved, rejected := uuid.New(), uuid.New()
	sendID := uuid.New()

	appendRec := func(action domain.Action, outcome domain.Outcome, resourceType domain.ResourceType, resourceID uuid.UUID, detail map[string]any) {
		t.Helper()
		rid := resourceID
		_, err := store.Audit.Append(ctx, domain.AuditRecord{
			TenantID: tenant, ActorID: &actor, ActorRole: &role,
			Action: action, ResourceType: resourceType, ResourceID: &rid, MatterID: &matterID,
			Outcome: outcome, Detail: detail,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	appendRec(domain.ActionCreateDraft, domain.OutcomeSuccess, domain.ResourceTypeDraft, approved,
		map[string]any{domain.DetailToStatus: "PENDING", domain.DetailVersion: 1})
	appendRec(domain.ActionCreateDraft, domain.OutcomeSuccess, domain.ResourceTypeDraft, rejected,
		map[string]any{domain.DetailToStatus: "PENDING", domain.DetailVersion: 1})
	appendRec(domain.ActionApproveDraft, domain.OutcomeFailure, domain.ResourceTypeDraft, approved,
		map[string]any{domain.DetailReason: "unacknowledged_flags"})
	appendRec(domain.ActionApproveDraft, domain.OutcomeSuccess, domain.ResourceTypeDraft, approved,
		map[string]any{domain.DetailToStatus: "MODIFIED_APPROVED", domain.DetailVersion: 2})
	appendRec(domain.ActionRejectDraft, domain.OutcomeSuccess, domain.ResourceTypeDraft, rejected,
		map[string]any{domain.DetailToStatus: "REJECTED", domain.DetailVersion: 1})
	appendRec(domain.ActionExecuteSend, domain.OutcomeSuccess, domain.ResourceTypeSend, sendID, map[string]any{
		domain.DetailSendRecordID: sendID.String(),
		domain.DetailDraftID:      approved.String(),
		domain.DetailRecipient:    "clerk@court.example",
		domain.DetailMethod:       "filing",
	})
	appendRec(domain.ActionExecuteSend, domain.OutcomeFailure, domain.ResourceTypeSend, uuid.New(), map[string]any{
		domain.DetailReason: "transport_failure",
	})

	st, err := svc.Replay(ctx, tenant)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if st.Records != 7 {
		t.Errorf("records = %d, want 7", st.Records)
	}
	if d := st.Drafts[approved]; d == nil || d.Status != domain.DraftStatusModifiedApproved || d.Version != 2 {
		t.Errorf("approved draft state = %+v", d)
	}
	if d := st.Drafts[rejected]; d == nil || d.Status != domain.DraftStatusRejected || d.MatterID != matterID {
		t.Errorf("rejected draft state = %+v", d)
	}
	if len(st.Sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(st.Sends))
	}
	s := st.Sends[0]
	if s.SendRecordID != sendID || s.DraftID != approved || s.Method != domain.SendMethodFiling || s.Reconciliation {
		t.Errorf("send = %+v", s)
	}
}

func TestReplay_ReconciliationSend(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()
	tenant := uuid.New()
	sendID := uuid.New()

	_, err := store.Audit.Append(ctx, domain.AuditRecord{
		TenantID: tenant, Action: domain.ActionExecuteSend, ResourceType: domain.ResourceTypeSend, ResourceID: &sendID,
		Outcome: domain.OutcomeFailure,
		Detail: map[string]any{
			domain.DetailReconciliation: true,
			domain.DetailSendRecordID:   sendID.String(),
		},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	st, err := svc.Replay(ctx, tenant)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(st.Sends) != 1 || !st.Sends[0].Reconciliation || st.Sends[0].SendRecordID != sendID {
		t.Errorf("sends = %+v", st.Sends)
	}
}
