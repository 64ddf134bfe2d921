package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Token is the opaque bearer credential handed to a guest after login.
type Token string

type Session struct {
	Token     Token
	GuestID   domain.GuestID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists guest portal sessions with a TTL.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, t Token) (Session, error)
	Delete(ctx context.Context, t Token) error
}
