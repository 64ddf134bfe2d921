package activityrepo

import (
	"context"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// Query selects activity events. Since is inclusive; a zero Since means "no lower bound".
// Limit <= 0 means unlimited.
type Query struct {
	GuestID *domain.GuestID
	Since   time.Time
	Limit   int
}

// Repository persists activity events. Events are append-only.
//
// List returns events ordered by OccurredAt descending, then ID descending.
type Repository interface {
	Append(ctx context.Context, e domain.ActivityEvent) error
	List(ctx context.Context, q Query) ([]domain.ActivityEvent, error)
}
