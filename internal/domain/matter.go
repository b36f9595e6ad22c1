package domain

import (
	"time"

	"github.com/google/uuid"
)

// Matter is a case handled for a represented party. Matters are created by
// intake and are read-only to this service.
type Matter struct {
	ID                     uuid.UUID
	TenantID               uuid.UUID
	Number                 string
	Status                 string
	AssignedProfessionalID *uuid.UUID
	Parties                []Party
	Counterparties         []Counterparty
	CreatedAt              time.Time
}

// Party is the represented person on a matter.
type Party struct {
	ID        uuid.UUID
	MatterID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Counterparty is a creditor or other third party on a matter.
type Counterparty struct {
	ID        uuid.UUID
	MatterID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

// NameMatch is a party or counterparty name found on another matter.
type NameMatch struct {
	MatterID     uuid.UUID
	MatterNumber string
	Name         string
	CreatedAt    time.Time
}

// NameKind distinguishes party names from counterparty names in the index.
type NameKind string

const (
	NameKindParty        NameKind = "party"
	NameKindCounterparty NameKind = "counterparty"
)

// IndexedName is a name from the tenant's matter corpus used for fuzzy matching.
type IndexedName struct {
	Kind NameKind
	NameMatch
}
