package domain

import "github.com/google/uuid"

// Actor is an authenticated identity scoped to one tenant.
// The core never mutates an Actor.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	TenantID uuid.UUID
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil && a.TenantID == uuid.Nil && a.Role == ""
}

// Validate checks that the actor carries a known role and both identifiers.
func (a Actor) Validate() error {
	var errs []FieldError
	if a.ID == uuid.Nil {
		errs = append(errs, FieldError{Field: "actor.id", Message: "required"})
	}
	if a.TenantID == uuid.Nil {
		errs = append(errs, FieldError{Field: "actor.tenant_id", Message: "required"})
	}
	if !a.Role.IsValid() {
		errs = append(errs, FieldError{Field: "actor.role", Message: "unknown role"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
