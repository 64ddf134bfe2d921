package guestrepo

import (
	"context"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// Guest is the persistence shape used by the guest repository.
// It is an internal record, not an HTTP DTO.
type Guest struct {
	domain.Guest

	// InviteTokenHash is the hex SHA-256 of the outstanding one-time invite token; empty when none.
	InviteTokenHash string
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	GroupID *domain.GroupID
	// Ungrouped restricts results to guests without a group. Ignored when GroupID is set.
	Ungrouped bool
	RSVP      *domain.RSVPStatus
	// Query matches all whitespace-separated tokens case-insensitively against first name, last name and email.
	Query string
}

// Repository provides access to persisted guests.
//
// Result ordering expectations:
// - List returns guests ordered by lower(last name), lower(first name), ID ascending.
type Repository interface {
	Create(ctx context.Context, g Guest) error
	Update(ctx context.Context, g Guest) error
	Delete(ctx context.Context, id domain.GuestID) error

	GetByID(ctx context.Context, id domain.GuestID) (Guest, error)
	// GetByEmail looks up a guest by normalized email.
	GetByEmail(ctx context.Context, email string) (Guest, error)
	GetByInviteTokenHash(ctx context.Context, hash string) (Guest, error)

	// MarkInviteSent records a newly issued invite: token hash, SENT status and sent time.
	// accessCode is stored only when the guest has none. No other field is written.
	MarkInviteSent(ctx context.Context, id domain.GuestID, tokenHash, accessCode string, sentAt time.Time) (Guest, error)
	// ConsumeInviteToken clears the invite token matching hash and marks the guest REDEEMED
	// in one atomic step. Only one caller can consume a token; the rest get ErrNotFound.
	ConsumeInviteToken(ctx context.Context, hash string, now time.Time) (Guest, error)

	List(ctx context.Context, f Filter) ([]Guest, error)

	// SetGroup updates the group of each listed guest in a single unit of work.
	// Unknown IDs are ignored; callers validate IDs beforehand.
	SetGroup(ctx context.Context, ids []domain.GuestID, group *domain.GroupID) error
}
