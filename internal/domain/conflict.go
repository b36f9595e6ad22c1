package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictCandidate is a possible conflict of interest found by the matcher.
// Candidates are never persisted except inside a decision's audit detail.
type ConflictCandidate struct {
	Type          ConflictType `json:"type"`
	MatterID      uuid.UUID    `json:"matter_id"`
	MatterNumber  string       `json:"matter_number"`
	MatchedName   string       `json:"matched_name"`
	CandidateName string       `json:"candidate_name"`
	Detail        string       `json:"detail"`
	Severity      int          `json:"severity"`
	MatchedAt     time.Time    `json:"matched_at"`
}

// ConflictReport is the deterministic result of one conflict check.
// Truncated lists candidate names whose match count reached the per-name cap.
type ConflictReport struct {
	MatterID   uuid.UUID           `json:"matter_id"`
	Candidates []ConflictCandidate `json:"candidates"`
	Truncated  []string            `json:"truncated,omitempty"`
}

// ActorCount is one row of a quick-approval scan.
type ActorCount struct {
	ActorID uuid.UUID `json:"actor_id"`
	Count   int       `json:"count"`
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
