package grouprepo

import (
	"context"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// Repository provides access to persisted household groups.
//
// Create and Update return ErrAlreadyExists when the canonical key collides with another group.
// List returns groups ordered by lower(name) ascending. MemberCount is left zero; the
// application layer derives it from guests.
type Repository interface {
	Create(ctx context.Context, g domain.Group) error
	Update(ctx context.Context, g domain.Group) error
	// Delete removes the group. Callers clear members first; storage backends with
	// foreign keys also null out any stragglers.
	Delete(ctx context.Context, id domain.GroupID) error

	GetByID(ctx context.Context, id domain.GroupID) (domain.Group, error)
	GetByCanonicalKey(ctx context.Context, key string) (domain.Group, error)

	List(ctx context.Context) ([]domain.Group, error)
}
