package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SendRecord is the proof that an outward transmission happened. Exactly one
// exists per (DraftID, Recipient, Method).
type SendRecord struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	DraftID          uuid.UUID
	MatterID         uuid.UUID
	Recipient        string
	Method           SendMethod
	AuthorizedBy     uuid.UUID
	TransportReceipt string
	AuditRecordID    uuid.UUID
	CreatedAt        time.Time
}

// SendKey identifies a send for idempotency purposes.
type SendKey struct {
	DraftID   uuid.UUID
	Recipient string
	Method    SendMethod
}

// NormalizeRecipient trims surrounding whitespace. Recipients are otherwise
// compared verbatim.
func NormalizeRecipient(r string) string {
	return strings.TrimSpace(r)
}

// Acknowledgments are the reviewer's explicit confirmations. A nil field means
// the confirmation was not supplied.
type Acknowledgments struct {
	ContentReviewed        *bool `json:"content_reviewed"`
	RecipientVerified      *bool `json:"recipient_verified"`
	ResponsibilityAccepted *bool `json:"responsibility_accepted"`
}

// Missing returns the names of confirmations that are absent or false.
func (a Acknowledgments) Missing() []string {
	var missing []string
	if a.ContentReviewed == nil || !*a.ContentReviewed {
		missing = append(missing, "content_reviewed")
	}
	if a.RecipientVerified == nil || !*a.RecipientVerified {
		missing = append(missing, "recipient_verified")
	}
	if a.ResponsibilityAccepted == nil || !*a.ResponsibilityAccepted {
		missing = append(missing, "responsibility_accepted")
	}
	return missing
}

// Complete reports whether all confirmations are present and true.
func (a Acknowledgments) Complete() bool {
	return len(a.Missing()) == 0
}

// Transmission is what the transport collaborator receives.
type Transmission struct {
	SendID    uuid.UUID
	TenantID  uuid.UUID
	DraftID   uuid.UUID
	MatterID  uuid.UUID
	DraftType DraftType
	Version   int
	Recipient string
	Method    SendMethod
	Content   []byte
}

// Receipt is the transport collaborator's definitive acceptance.
type Receipt struct {
	Reference string
}
