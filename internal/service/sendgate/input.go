package sendgate

import (
	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

const maxRecipientLength = 512

// ExecuteSendInput holds the parameters for sending an approved draft.
type ExecuteSendInput struct {
	DraftID         uuid.UUID
	Recipient       string
	Method          domain.SendMethod
	Acknowledgments domain.Acknowledgments
}

// Validate checks all fields and collects all errors. Acknowledgments are
// checked later as a recorded precondition.
func (i ExecuteSendInput) Validate() error {
	var errs []domain.FieldError

	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	recipient := domain.NormalizeRecipient(i.Recipient)
	if recipient == "" {
		errs = append(errs, domain.FieldError{Field: "recipient", Message: "required"})
	}
	if len(recipient) > maxRecipientLength {
		errs = append(errs, domain.FieldError{Field: "recipient", Message: "max 512 characters"})
	}
	if !i.Method.IsValid() {
		errs = append(errs, domain.FieldError{Field: "method", Message: "unknown send method"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func (i ExecuteSendInput) key() domain.SendKey {
	return domain.SendKey{
		DraftID:   i.DraftID,
		Recipient: domain.NormalizeRecipient(i.Recipient),
		Method:    i.Method,
	}
}
