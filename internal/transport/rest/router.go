package rest

import "net/http"

// Handlers bundles every REST handler for route registration.
type Handlers struct {
	Health    *HealthHandler
	Drafts    *DraftHandler
	Sends     *SendHandler
	Conflicts *ConflictHandler
	Audit     *AuditHandler
	Anomalies *AnomalyHandler
	Policy    *PolicyHandler
}

// Register mounts all routes on mux. Probes are registered separately by the
// caller so they can bypass authentication and rate limiting.
func (h Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/drafts", h.Drafts.Submit)
	mux.HandleFunc("GET /v1/drafts/{id}", h.Drafts.Get)
	mux.HandleFunc("POST /v1/drafts/{id}/flags/{flagID}/acknowledge", h.Drafts.AcknowledgeFlag)
	mux.HandleFunc("POST /v1/drafts/{id}/approve", h.Drafts.Approve)
	mux.HandleFunc("POST /v1/drafts/{id}/modify-approve", h.Drafts.ModifyAndApprove)
	mux.HandleFunc("POST /v1/drafts/{id}/reject", h.Drafts.Reject)

	mux.HandleFunc("POST /v1/drafts/{id}/sends", h.Sends.Execute)
	mux.HandleFunc("GET /v1/drafts/{id}/sends", h.Sends.List)
	mux.HandleFunc("GET /v1/sends/{id}", h.Sends.Get)

	mux.HandleFunc("POST /v1/matters/{id}/conflict-checks", h.Conflicts.RunCheck)
	mux.HandleFunc("POST /v1/matters/{id}/conflict-decisions", h.Conflicts.Decide)

	mux.HandleFunc("GET /v1/audit", h.Audit.Query)
	mux.HandleFunc("POST /v1/audit/verify", h.Audit.Verify)
	mux.HandleFunc("POST /v1/audit/{id}/corrections", h.Audit.Correct)

	mux.HandleFunc("GET /v1/anomalies/quick-approvals", h.Anomalies.QuickApprovals)
	mux.HandleFunc("GET /v1/policy", h.Policy.Rules)
}

// RegisterProbes mounts the health endpoints.
func (h Handlers) RegisterProbes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
}
