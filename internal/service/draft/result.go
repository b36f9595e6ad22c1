package draft

import "github.com/casegate/casegate-backend/internal/domain"

// DraftDetails is a draft with the content of its superseded versions.
type DraftDetails struct {
	Draft     *domain.Draft
	Revisions []domain.DraftRevision
}
