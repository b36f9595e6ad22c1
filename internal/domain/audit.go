package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an immutable entry describing one attempted or completed
// action. Once appended it is never updated or deleted; corrections are new
// records with CorrectsID set.
type AuditRecord struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Seq        int64
	OccurredAt time.Time

	// ActorID and ActorRole are nil for system-initiated entries.
	ActorID   *uuid.UUID
	ActorRole *Role

	Action       Action
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	MatterID     *uuid.UUID
	Outcome      Outcome
	Detail       map[string]any
	Origin       string
	CorrectsID   *uuid.UUID

	PrevHash string
	Hash     string
}

// Well-known detail keys.
const (
	DetailReviewDurationSeconds = "review_duration_seconds"
	DetailReason                = "reason"
	DetailError                 = "error"
	DetailRulesVersion          = "rules_version"
	DetailVersion               = "version"
	DetailFromStatus            = "from_status"
	DetailToStatus              = "to_status"
	DetailSendRecordID          = "send_record_id"
	DetailDraftID               = "draft_id"
	DetailRecipient             = "recipient"
	DetailMethod                = "method"
	DetailReconciliation        = "reconciliation_required"
)

// Page size bounds for audit queries.
const (
	DefaultAuditPageSize = 100
	MaxAuditPageSize     = 500
)

// ClampAuditLimit applies the default and maximum page size.
func ClampAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultAuditPageSize
	case limit > MaxAuditPageSize:
		return MaxAuditPageSize
	}
	return limit
}

// AuditFilter selects audit records. TenantID is mandatory.
type AuditFilter struct {
	TenantID     uuid.UUID
	ActorID      *uuid.UUID
	Actions      []Action
	ResourceType *ResourceType
	ResourceID   *uuid.UUID
	MatterID     *uuid.UUID
	Outcome      *Outcome
	From         *time.Time // inclusive
	To           *time.Time // exclusive

	Limit     int
	PageToken string
}

// AuditPage is one page of an ordered audit query.
// NextToken is empty when there are no further records.
type AuditPage struct {
	Records   []AuditRecord
	NextToken string
}

// chainDomain separates audit chain hashes from any other sha256 use.
const chainDomain = "casegate/audit-chain/v1"

type chainPayload struct {
	TenantID     string          `json:"tenant_id"`
	Seq          int64           `json:"seq"`
	ID           string          `json:"id"`
	OccurredAt   string          `json:"occurred_at"`
	ActorID      *string         `json:"actor_id"`
	ActorRole    *string         `json:"actor_role"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	MatterID     *string         `json:"matter_id"`
	Outcome      string          `json:"outcome"`
	Detail       json.RawMessage `json:"detail"`
	Origin       string          `json:"origin"`
	CorrectsID   *string         `json:"corrects_id"`
}

// ChainHash computes the record hash from prevHash and the record content.
// Seq and OccurredAt must already be assigned. The detail payload is
// canonicalized so the hash survives a round-trip through JSONB storage.
func (r AuditRecord) ChainHash(prevHash string) (string, error) {
	detail, err := CanonicalJSON(r.Detail)
	if err != nil {
		return "", fmt.Errorf("canonicalize detail: %w", err)
	}

	var role *string
	if r.ActorRole != nil {
		s := string(*r.ActorRole)
		role = &s
	}

	payload, err := json.Marshal(chainPayload{
		TenantID:     r.TenantID.String(),
		Seq:          r.Seq,
		ID:           r.ID.String(),
		OccurredAt:   r.OccurredAt.UTC().Format(time.RFC3339Nano),
		ActorID:      uuidString(r.ActorID),
		ActorRole:    role,
		Action:       string(r.Action),
		ResourceType: string(r.ResourceType),
		ResourceID:   uuidString(r.ResourceID),
		MatterID:     uuidString(r.MatterID),
		Outcome:      string(r.Outcome),
		Detail:       detail,
		Origin:       r.Origin,
		CorrectsID:   uuidString(r.CorrectsID),
	})
	if err != nil {
		return "", fmt.Errorf("marshal chain payload: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(chainDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(prevHash))
	h.Write([]byte{0x00})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON marshals v with object keys sorted at every depth and numbers
// kept in their literal form. A nil value encodes as {}.
func CanonicalJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	if m, ok := v.(map[string]any); ok && m == nil {
		return json.RawMessage("{}"), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}

// DecodeDetail parses a stored detail payload, keeping numbers as json.Number.
func DecodeDetail(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	detail := map[string]any{}
	if err := dec.Decode(&detail); err != nil {
		return nil, err
	}
	if detail == nil {
		detail = map[string]any{}
	}
	return detail, nil
}

// DetailFloat reads a numeric detail value regardless of how it was decoded.
func DetailFloat(detail map[string]any, key string) (float64, bool) {
	switch v := detail[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// DetailString reads a string detail value.
func DetailString(detail map[string]any, key string) (string, bool) {
	s, ok := detail[key].(string)
	return s, ok
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
