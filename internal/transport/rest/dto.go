package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/draft"
)

type draftResponse struct {
	ID                 uuid.UUID          `json:"id"`
	MatterID           uuid.UUID          `json:"matter_id"`
	PredecessorID      *uuid.UUID         `json:"predecessor_id,omitempty"`
	Type               domain.DraftType   `json:"type"`
	Version            int                `json:"version"`
	Status             domain.DraftStatus `json:"status"`
	Content            []byte             `json:"content"`
	Flags              []domain.Flag      `json:"flags"`
	CreatedAt          time.Time          `json:"created_at"`
	VersionedAt        time.Time          `json:"versioned_at"`
	LastTransitionedAt *time.Time         `json:"last_transitioned_at,omitempty"`
	LastTransitionedBy *uuid.UUID         `json:"last_transitioned_by,omitempty"`
}

type revisionResponse struct {
	Version   int       `json:"version"`
	Content   []byte    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type draftDetailsResponse struct {
	draftResponse
	Revisions []revisionResponse `json:"revisions"`
}

func toDraftResponse(d *domain.Draft) draftResponse {
	flags := d.Flags
	if flags == nil {
		flags = []domain.Flag{}
	}
	return draftResponse{
		ID:                 d.ID,
		MatterID:           d.MatterID,
		PredecessorID:      d.PredecessorID,
		Type:               d.Type,
		Version:            d.Version,
		Status:             d.Status,
		Content:            d.Content,
		Flags:              flags,
		CreatedAt:          d.CreatedAt,
		VersionedAt:        d.VersionedAt,
		LastTransitionedAt: d.LastTransitionedAt,
		LastTransitionedBy: d.LastTransitionedBy,
	}
}

func toDraftDetailsResponse(dd *draft.DraftDetails) draftDetailsResponse {
	revs := make([]revisionResponse, len(dd.Revisions))
	for i, r := range dd.Revisions {
		revs[i] = revisionResponse{Version: r.Version, Content: r.Content, CreatedAt: r.CreatedAt}
	}
	return draftDetailsResponse{draftResponse: toDraftResponse(dd.Draft), Revisions: revs}
}

type sendResponse struct {
	ID               uuid.UUID         `json:"id"`
	DraftID          uuid.UUID         `json:"draft_id"`
	MatterID         uuid.UUID         `json:"matter_id"`
	Recipient        string            `json:"recipient"`
	Method           domain.SendMethod `json:"method"`
	AuthorizedBy     uuid.UUID         `json:"authorized_by"`
	TransportReceipt string            `json:"transport_receipt"`
	AuditRecordID    uuid.UUID         `json:"audit_record_id"`
	CreatedAt        time.Time         `json:"created_at"`
}

func toSendResponse(s *domain.SendRecord) sendResponse {
	return sendResponse{
		ID:               s.ID,
		DraftID:          s.DraftID,
		MatterID:         s.MatterID,
		Recipient:        s.Recipient,
		Method:           s.Method,
		AuthorizedBy:     s.AuthorizedBy,
		TransportReceipt: s.TransportReceipt,
		AuditRecordID:    s.AuditRecordID,
		CreatedAt:        s.CreatedAt,
	}
}

type auditRecordResponse struct {
	ID           uuid.UUID           `json:"id"`
	Seq          int64               `json:"seq"`
	OccurredAt   time.Time           `json:"occurred_at"`
	ActorID      *uuid.UUID          `json:"actor_id,omitempty"`
	ActorRole    *domain.Role        `json:"actor_role,omitempty"`
	Action       domain.Action       `json:"action"`
	ResourceType domain.ResourceType `json:"resource_type"`
	ResourceID   *uuid.UUID          `json:"resource_id,omitempty"`
	MatterID     *uuid.UUID          `json:"matter_id,omitempty"`
	Outcome      domain.Outcome      `json:"outcome"`
	Detail       map[string]any      `json:"detail"`
	Origin       string              `json:"origin,omitempty"`
	CorrectsID   *uuid.UUID          `json:"corrects_id,omitempty"`
	PrevHash     string              `json:"prev_hash"`
	Hash         string              `json:"hash"`
}

func toAuditRecordResponse(rec domain.AuditRecord) auditRecordResponse {
	return auditRecordResponse{
		ID:           rec.ID,
		Seq:          rec.Seq,
		OccurredAt:   rec.OccurredAt,
		ActorID:      rec.ActorID,
		ActorRole:    rec.ActorRole,
		Action:       rec.Action,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		MatterID:     rec.MatterID,
		Outcome:      rec.Outcome,
		Detail:       rec.Detail,
		Origin:       rec.Origin,
		CorrectsID:   rec.CorrectsID,
		PrevHash:     rec.PrevHash,
		Hash:         rec.Hash,
	}
}

type auditPageResponse struct {
	Records       []auditRecordResponse `json:"records"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

func toAuditPageResponse(page domain.AuditPage) auditPageResponse {
	out := auditPageResponse{
		Records:       make([]auditRecordResponse, len(page.Records)),
		NextPageToken: page.NextToken,
	}
	for i, rec := range page.Records {
		out.Records[i] = toAuditRecordResponse(rec)
	}
	return out
}

type conflictReportResponse struct {
	MatterID   uuid.UUID                  `json:"matter_id"`
	Candidates []domain.ConflictCandidate `json:"candidates"`
	Truncated  []string                   `json:"truncated,omitempty"`
}

func toConflictReportResponse(r *domain.ConflictReport) conflictReportResponse {
	candidates := r.Candidates
	if candidates == nil {
		candidates = []domain.ConflictCandidate{}
	}
	return conflictReportResponse{MatterID: r.MatterID, Candidates: candidates, Truncated: r.Truncated}
}
