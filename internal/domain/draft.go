package domain

import (
	"time"

	"github.com/google/uuid"
)

// Draft is a generated document awaiting human approval before external use.
// Drafts are never deleted; a rejected draft is superseded by a new draft that
// links to it through PredecessorID.
type Draft struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	MatterID      uuid.UUID
	PredecessorID *uuid.UUID
	Type          DraftType
	Version       int
	Status        DraftStatus
	Content       []byte
	Flags         []Flag

	CreatedAt time.Time
	// VersionedAt is when the current version's content was produced.
	VersionedAt        time.Time
	LastTransitionedAt *time.Time
	LastTransitionedBy *uuid.UUID
}

// Flag is a reviewer-facing warning attached by the content generator.
type Flag struct {
	ID             uuid.UUID  `json:"id"`
	Type           string     `json:"type"`
	Message        string     `json:"message"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *uuid.UUID `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// UnacknowledgedFlags returns the IDs of flags not yet acknowledged.
func (d *Draft) UnacknowledgedFlags() []uuid.UUID {
	var ids []uuid.UUID
	for _, f := range d.Flags {
		if !f.Acknowledged {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// AllFlagsAcknowledged reports whether every flag has been acknowledged.
// A draft without flags trivially satisfies this.
func (d *Draft) AllFlagsAcknowledged() bool {
	return len(d.UnacknowledgedFlags()) == 0
}

// FlagIndex returns the index of the flag with the given ID, or -1.
func (d *Draft) FlagIndex(id uuid.UUID) int {
	for i, f := range d.Flags {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// DraftRevision keeps the content of a superseded draft version.
type DraftRevision struct {
	DraftID   uuid.UUID
	Version   int
	Content   []byte
	CreatedAt time.Time
}

// DraftTransition describes a compare-and-swap update of a pending draft.
// The update applies only if the stored version equals ExpectedVersion and
// the stored status is PENDING.
type DraftTransition struct {
	TenantID        uuid.UUID
	DraftID         uuid.UUID
	ExpectedVersion int

	Status  DraftStatus
	Version int
	Content []byte // nil keeps the current content

	TransitionedAt time.Time
	TransitionedBy uuid.UUID
	// VersionedAt is set when the transition produces new content.
	VersionedAt *time.Time
}
