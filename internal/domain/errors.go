package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")

	// ErrPermissionDenied is returned when the policy engine denies an action.
	// A DENIED audit record has always been written when this is returned.
	ErrPermissionDenied = errors.New("permission denied")

	ErrUnacknowledgedFlags = errors.New("draft has unacknowledged flags")
	ErrStaleVersion        = errors.New("stale draft version")
	ErrInvalidTransition   = errors.New("invalid draft transition")
	ErrDraftNotApproved    = errors.New("draft is not approved")
	ErrSendInProgress      = errors.New("send already in progress")
	ErrLeaseLost           = errors.New("send lease lost")
	ErrTransport           = errors.New("transport failure")

	// ErrAuditWrite means the audit record for an action could not be durably
	// written. The action did not happen.
	ErrAuditWrite = errors.New("audit write failure")

	// ErrReconciliationRequired means a transmission succeeded but its
	// SendRecord and audit record could not be committed.
	ErrReconciliationRequired = errors.New("send requires reconciliation")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// AuditWriteError wraps the underlying store failure of an audit append.
// errors.Is matches both ErrAuditWrite and the cause.
type AuditWriteError struct {
	Cause error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write failure: %v", e.Cause)
}

func (e *AuditWriteError) Unwrap() []error { return []error{ErrAuditWrite, e.Cause} }

// NewAuditWriteError wraps err as an audit write failure. A nil err returns nil.
func NewAuditWriteError(err error) error {
	if err == nil {
		return nil
	}
	var awe *AuditWriteError
	if errors.As(err, &awe) {
		return err
	}
	return &AuditWriteError{Cause: err}
}

// DeniedError is returned alongside ErrPermissionDenied and carries the
// policy engine's reason.
type DeniedError struct {
	Action Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s: %s", e.Action, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }
