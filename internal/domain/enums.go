package domain

// Role is the closed set of actor roles.
type Role string

const (
	RoleSupervisingProfessional Role = "supervising_professional"
	RoleAssistantStaff          Role = "assistant_staff"
	RoleClient                  Role = "client"
	RoleAdministrator           Role = "administrator"
	RoleSupport                 Role = "support"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleSupervisingProfessional, RoleAssistantStaff, RoleClient, RoleAdministrator, RoleSupport:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdministrator
}

// Action is the closed, versioned set of gated actions.
type Action string

const (
	ActionCreateDraft         Action = "create-draft"
	ActionViewDraft           Action = "view-draft"
	ActionAcknowledgeFlag     Action = "acknowledge-flag"
	ActionApproveDraft        Action = "approve-draft"
	ActionRejectDraft         Action = "reject-draft"
	ActionExecuteSend         Action = "execute-send"
	ActionRunConflictCheck    Action = "run-conflict-check"
	ActionDecideConflictCheck Action = "decide-conflict-check"
	ActionModifyCaseStatus    Action = "modify-case-status"
	ActionViewAuditLog        Action = "view-audit-log"
	ActionVerifyAuditChain    Action = "verify-audit-chain"
	ActionCorrectAuditRecord  Action = "correct-audit-record"
	ActionScanAnomalies       Action = "scan-anomalies"
)

// AllActions lists every action in declaration order.
var AllActions = []Action{
	ActionCreateDraft, ActionViewDraft, ActionAcknowledgeFlag, ActionApproveDraft,
	ActionRejectDraft, ActionExecuteSend, ActionRunConflictCheck, ActionDecideConflictCheck,
	ActionModifyCaseStatus, ActionViewAuditLog, ActionVerifyAuditChain,
	ActionCorrectAuditRecord, ActionScanAnomalies,
}

func (a Action) String() string { return string(a) }

func (a Action) IsValid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// DraftType classifies generated documents.
type DraftType string

const (
	DraftTypeNotice    DraftType = "notice"
	DraftTypeFiling    DraftType = "filing"
	DraftTypeStatement DraftType = "statement"
	DraftTypeSchedule  DraftType = "schedule"
	DraftTypeResponse  DraftType = "response"
	DraftTypeLetter    DraftType = "letter"
	DraftTypeOther     DraftType = "other"
)

func (t DraftType) String() string { return string(t) }

func (t DraftType) IsValid() bool {
	switch t {
	case DraftTypeNotice, DraftTypeFiling, DraftTypeStatement, DraftTypeSchedule,
		DraftTypeResponse, DraftTypeLetter, DraftTypeOther:
		return true
	}
	return false
}

// DraftStatus is the workflow state of a draft.
type DraftStatus string

const (
	DraftStatusPending          DraftStatus = "PENDING"
	DraftStatusApproved         DraftStatus = "APPROVED"
	DraftStatusModifiedApproved DraftStatus = "MODIFIED_APPROVED"
	DraftStatusRejected         DraftStatus = "REJECTED"
)

func (s DraftStatus) String() string { return string(s) }

func (s DraftStatus) IsValid() bool {
	switch s {
	case DraftStatusPending, DraftStatusApproved, DraftStatusModifiedApproved, DraftStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s DraftStatus) IsTerminal() bool {
	return s != DraftStatusPending
}

// IsApproved reports whether the draft may be sent.
func (s DraftStatus) IsApproved() bool {
	return s == DraftStatusApproved || s == DraftStatusModifiedApproved
}

// Outcome is the result recorded for an audited attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeDenied  Outcome = "DENIED"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeDenied:
		return true
	}
	return false
}

// ResourceType identifies the kind of entity an audit record is about.
type ResourceType string

const (
	ResourceTypeDraft       ResourceType = "DRAFT"
	ResourceTypeMatter      ResourceType = "MATTER"
	ResourceTypeSend        ResourceType = "SEND"
	ResourceTypeAuditRecord ResourceType = "AUDIT_RECORD"
	ResourceTypeAuditLog    ResourceType = "AUDIT_LOG"
)

func (r ResourceType) String() string { return string(r) }

func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceTypeDraft, ResourceTypeMatter, ResourceTypeSend, ResourceTypeAuditRecord, ResourceTypeAuditLog:
		return true
	}
	return false
}

// SendMethod is the transmission channel of an outward communication.
type SendMethod string

const (
	SendMethodMail   SendMethod = "mail"
	SendMethodFax    SendMethod = "fax"
	SendMethodEmail  SendMethod = "email"
	SendMethodFiling SendMethod = "filing"
)

func (m SendMethod) String() string { return string(m) }

func (m SendMethod) IsValid() bool {
	switch m {
	case SendMethodMail, SendMethodFax, SendMethodEmail, SendMethodFiling:
		return true
	}
	return false
}

// ConflictType classifies a conflict candidate.
type ConflictType string

const (
	ConflictTypePartyDuplicate    ConflictType = "PARTY_DUPLICATE"
	ConflictTypeCounterpartyMatch ConflictType = "COUNTERPARTY_MATCH"
	ConflictTypeSimilarName       ConflictType = "SIMILAR_NAME"
)

func (c ConflictType) String() string { return string(c) }

// Severity is derived from the type; higher is more serious.
func (c ConflictType) Severity() int {
	switch c {
	case ConflictTypePartyDuplicate:
		return 3
	case ConflictTypeCounterpartyMatch:
		return 2
	case ConflictTypeSimilarName:
		return 1
	}
	return 0
}

// ConflictDecision is the human decision on a conflict check.
type ConflictDecision string

const (
	ConflictDecisionCleared  ConflictDecision = "cleared"
	ConflictDecisionWaived   ConflictDecision = "waived"
	ConflictDecisionDeclined ConflictDecision = "declined"
)

func (d ConflictDecision) String() string { return string(d) }

func (d ConflictDecision) IsValid() bool {
	switch d {
	case ConflictDecisionCleared, ConflictDecisionWaived, ConflictDecisionDeclined:
		return true
	}
	return false
}
