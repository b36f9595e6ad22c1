package rest

import (
	"log/slog"
	"net/http"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

type rulesSource interface {
	Rules() *policy.Rules
}

// PolicyHandler exposes the rule table in force.
type PolicyHandler struct {
	rules rulesSource
	errorResponder
}

// NewPolicyHandler creates a PolicyHandler.
func NewPolicyHandler(rules rulesSource, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{rules: rules, errorResponder: errorResponder{log: logger.With("handler", "policy")}}
}

// Rules handles GET /v1/policy. Any authenticated actor may read it.
func (h *PolicyHandler) Rules(w http.ResponseWriter, r *http.Request) {
	if _, ok := ctxutil.ActorFromCtx(r.Context()); !ok {
		h.handleError(w, r, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.rules.Rules())
}
