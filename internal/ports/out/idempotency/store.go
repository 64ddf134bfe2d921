package idempotency

import (
	"context"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// Key is the caller-provided Idempotency-Key header value.
type Key string

// Fingerprint identifies a stored response.
//
// Admin sends (invites, nudges) are fingerprinted by key + admin subject + route.
// BodyHash is empty for the "claim" record, which stores the hash of the first payload
// seen for the key so later reuse with a different payload can be rejected.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response replayed for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records. Put overwrites.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// PurgeBefore deletes records created before the cutoff and returns how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}
