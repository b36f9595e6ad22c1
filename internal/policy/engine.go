// Package policy decides whether an actor may perform a gated action.
// The action to role mapping is data loaded from a versioned YAML table.
package policy

import (
	"slices"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// Deny reasons.
const (
	ReasonTenantMismatch   = "tenant_mismatch"
	ReasonUnknownAction    = "unknown_action"
	ReasonRoleNotPermitted = "role_not_permitted"
	ReasonNotOwner         = "not_owner"
)

// ResourceRef identifies the tenant and, optionally, the responsible
// professional of the resource an action targets.
type ResourceRef struct {
	TenantID uuid.UUID
	OwnerID  *uuid.UUID
}

// Decision is the typed result of Authorize.
type Decision struct {
	Allowed      bool
	Reason       string
	RulesVersion string
}

// Engine evaluates actions against an immutable rule table.
type Engine struct {
	rules *Rules
}

// NewEngine creates an Engine. The table is copied.
func NewEngine(rules *Rules) *Engine {
	return &Engine{rules: rules.clone()}
}

// Version returns the version of the rule table in force.
func (e *Engine) Version() string {
	return e.rules.Version
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() *Rules {
	return e.rules.clone()
}

// Authorize never fails; every outcome is expressed in the Decision.
// Tenant isolation is checked before anything else and applies to every role.
func (e *Engine) Authorize(actor domain.Actor, action domain.Action, res ResourceRef) Decision {
	deny := func(reason string) Decision {
		return Decision{Allowed: false, Reason: reason, RulesVersion: e.rules.Version}
	}

	if actor.TenantID == uuid.Nil || res.TenantID != actor.TenantID {
		return deny(ReasonTenantMismatch)
	}

	rule, ok := e.rules.Actions[action]
	if !ok || !action.IsValid() {
		return deny(ReasonUnknownAction)
	}

	if !actor.Role.IsValid() || !slices.Contains(rule.Roles, actor.Role) {
		return deny(ReasonRoleNotPermitted)
	}

	if rule.OwnerOnly && !actor.Role.IsAdmin() {
		if res.OwnerID == nil || *res.OwnerID != actor.ID {
			return deny(ReasonNotOwner)
		}
	}

	return Decision{Allowed: true, RulesVersion: e.rules.Version}
}
