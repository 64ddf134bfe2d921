package httpapi

import (
	"context"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

type subjectKey struct{}
type sessionKey struct{}

// WithSubject stores the authenticated admin subject.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// WithSession stores the authenticated guest portal session.
func WithSession(ctx context.Context, s sessionstore.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (sessionstore.Session, bool) {
	v, ok := ctx.Value(sessionKey{}).(sessionstore.Session)
	return v, ok && v.GuestID != ""
}
