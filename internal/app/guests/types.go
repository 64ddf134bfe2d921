package guests

import (
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

type ListFilter struct {
	GroupID   *domain.GroupID
	Ungrouped bool
	RSVP      *domain.RSVPStatus
	Query     string
}

type CreateGuestInput struct {
	FirstName    string
	LastName     string
	Email        *string
	Phone        *string
	GroupID      *domain.GroupID
	RSVP         *domain.RSVPStatus // defaults to PENDING
	PlusOnes     int
	DietaryNotes *string
	IsAdult      *bool // defaults to true
}

type UpdateGuestInput struct {
	FirstName    patch.Field[string] // cannot be null
	LastName     patch.Field[string] // null clears
	Email        patch.Field[string]
	Phone        patch.Field[string]
	GroupID      patch.Field[domain.GroupID]
	PlusOnes     patch.Field[int] // cannot be null
	DietaryNotes patch.Field[string]
	IsAdult      patch.Field[bool] // cannot be null
	// AccessCode may be set explicitly; null regenerates it.
	AccessCode patch.Field[string]
}

// RSVPInput changes a guest's response. PlusOnes and DietaryNotes are optional.
type RSVPInput struct {
	Status       domain.RSVPStatus
	PlusOnes     *int
	DietaryNotes patch.Field[string]
}

// GroupRef names the target group of a bulk assignment: exactly one of ID or Name.
// A Name with no canonical match creates the group.
type GroupRef struct {
	ID   *domain.GroupID
	Name string
}

type BulkGroupResult struct {
	Group        *domain.Group
	GroupCreated bool
	Changed      []domain.GuestID
	Unchanged    []domain.GuestID
	Unknown      []domain.GuestID
}

type RowError struct {
	Row     int
	Message string
}

type ImportResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []RowError
}

type Summary struct {
	Total             int
	Pending           int
	Attending         int
	Declined          int
	InvitesSent       int
	InvitesRedeemed   int
	ExpectedHeadcount int
	WithoutLodging    int
	Groups            int
}
