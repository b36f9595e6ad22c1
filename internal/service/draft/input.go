package draft

import (
	"strings"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

const (
	maxFlags        = 50
	maxReasonLength = 2000
)

// FlagInput is a reviewer-facing warning supplied with a new draft.
type FlagInput struct {
	Type    string
	Message string
}

// SubmitInput holds the parameters for submitting a generated draft.
type SubmitInput struct {
	MatterID      uuid.UUID
	Type          domain.DraftType
	Content       []byte
	Flags         []FlagInput
	PredecessorID *uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i SubmitInput) Validate() error {
	var errs []domain.FieldError

	if i.MatterID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "matter_id", Message: "required"})
	}
	if !i.Type.IsValid() {
		errs = append(errs, domain.FieldError{Field: "type", Message: "unknown draft type"})
	}
	if len(i.Content) == 0 {
		errs = append(errs, domain.FieldError{Field: "content", Message: "required"})
	}
	if len(i.Flags) > maxFlags {
		errs = append(errs, domain.FieldError{Field: "flags", Message: "too many flags (max 50)"})
	}
	for _, f := range i.Flags {
		if strings.TrimSpace(f.Type) == "" || strings.TrimSpace(f.Message) == "" {
			errs = append(errs, domain.FieldError{Field: "flags", Message: "type and message are required"})
			break
		}
	}
	if i.PredecessorID != nil && *i.PredecessorID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "predecessor_id", Message: "invalid"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// AcknowledgeFlagInput holds the parameters for acknowledging a flag.
type AcknowledgeFlagInput struct {
	DraftID uuid.UUID
	FlagID  uuid.UUID
	Version int
}

// Validate checks all fields and collects all errors.
func (i AcknowledgeFlagInput) Validate() error {
	var errs []domain.FieldError
	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	if i.FlagID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "flag_id", Message: "required"})
	}
	errs = appendVersionError(errs, i.Version)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ApproveInput holds the parameters for approving a draft as-is.
type ApproveInput struct {
	DraftID uuid.UUID
	Version int
}

// Validate checks all fields and collects all errors.
func (i ApproveInput) Validate() error {
	var errs []domain.FieldError
	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	errs = appendVersionError(errs, i.Version)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ModifyInput holds the parameters for approving a draft with edited content.
type ModifyInput struct {
	DraftID uuid.UUID
	Version int
	Content []byte
}

// Validate checks all fields and collects all errors.
func (i ModifyInput) Validate() error {
	var errs []domain.FieldError
	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	errs = appendVersionError(errs, i.Version)
	if len(i.Content) == 0 {
		errs = append(errs, domain.FieldError{Field: "content", Message: "required"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// RejectInput holds the parameters for rejecting a draft.
type RejectInput struct {
	DraftID uuid.UUID
	Version int
	Reason  string
}

// Validate checks all fields and collects all errors.
func (i RejectInput) Validate() error {
	var errs []domain.FieldError
	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	errs = appendVersionError(errs, i.Version)

	reason := strings.TrimSpace(i.Reason)
	if reason == "" {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "required"})
	}
	if len(reason) > maxReasonLength {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "max 2000 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func appendVersionError(errs []domain.FieldError, version int) []domain.FieldError {
	if version < 1 {
		return append(errs, domain.FieldError{Field: "version", Message: "must be at least 1"})
	}
	return errs
}
