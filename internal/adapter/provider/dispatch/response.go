package dispatch

import (
	"encoding/base64"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

const statusAccepted = "accepted"

// apiRequest is the body posted to the dispatch service.
type apiRequest struct {
	SendID    uuid.UUID `json:"send_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	DraftID   uuid.UUID `json:"draft_id"`
	MatterID  uuid.UUID `json:"matter_id"`
	DraftType string    `json:"draft_type"`
	Version   int       `json:"version"`
	Recipient string    `json:"recipient"`
	Method    string    `json:"method"`
	Content   string    `json:"content"` // base64
}

// apiResponse is the dispatch service's answer.
type apiResponse struct {
	Status  string `json:"status"`
	Receipt string `json:"receipt"`
}

func toRequest(t domain.Transmission) apiRequest {
	return apiRequest{
		SendID:    t.SendID,
		TenantID:  t.TenantID,
		DraftID:   t.DraftID,
		MatterID:  t.MatterID,
		DraftType: string(t.DraftType),
		Version:   t.Version,
		Recipient: t.Recipient,
		Method:    string(t.Method),
		Content:   base64.StdEncoding.EncodeToString(t.Content),
	}
}
