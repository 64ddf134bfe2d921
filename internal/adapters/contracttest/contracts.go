package contracttest

import (
	"context"
	"testing"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	activityrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	grouprepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	guestrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	idempotencyport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
	lodgingrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
	sessionstoreport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

type CleanupFunc = func()

// AdvanceFunc moves the store's notion of "now" forward.
type AdvanceFunc = func(d time.Duration)

type GuestRepoFactory func(t *testing.T) (guestrepoport.Repository, CleanupFunc)
type GroupRepoFactory func(t *testing.T) (grouprepoport.Repository, CleanupFunc)
type LodgingRepoFactory func(t *testing.T) (lodgingrepoport.Repository, CleanupFunc)
type ActivityRepoFactory func(t *testing.T) (activityrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type SessionStoreFactory func(t *testing.T, now time.Time) (sessionstoreport.Store, AdvanceFunc, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("admin-1"),
		Method:   "POST",
		Route:    "/admin/invites",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different record.
	fpResp := fp
	fpResp.BodyHash = "hash-def"
	if err := store.Put(ctx, fpResp, idempotencyport.Record{
		StatusCode:  202,
		ContentType: "application/json",
		Body:        []byte(`{"sent":1}`),
		CreatedAt:   time.Unix(500, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put response: %v", err)
	}
	got, ok, err = store.Get(ctx, fpResp)
	if err != nil || !ok || got.StatusCode != 202 {
		t.Fatalf("Get response: ok=%v err=%v rec=%+v", ok, err, got)
	}

	// Purge drops only records created before the cutoff.
	n, err := store.PurgeBefore(ctx, time.Unix(200, 0).UTC())
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("PurgeBefore removed %d, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, fp); ok {
		t.Fatalf("expected claim record to be purged")
	}
	if _, ok, _ := store.Get(ctx, fpResp); !ok {
		t.Fatalf("expected response record to survive purge")
	}
}

func RunSessionStore(t *testing.T, newStore SessionStoreFactory) {
	t.Helper()
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store, advance, cleanup := newStore(t, now)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	sess := sessionstoreport.Session{
		Token:     "tok-1",
		GuestID:   domain.GuestID("guest-1"),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if _, err := store.Get(ctx, sess.Token); err != sessionstoreport.ErrNotFound {
		t.Fatalf("Get unknown: err=%v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GuestID != sess.GuestID || !got.ExpiresAt.Equal(sess.ExpiresAt) || !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.Token); err != sessionstoreport.ErrNotFound {
		t.Fatalf("Get after Delete: err=%v, want ErrNotFound", err)
	}
	// Deleting twice is not an error.
	if err := store.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("Delete again: %v", err)
	}

	short := sessionstoreport.Session{
		Token:     "tok-2",
		GuestID:   domain.GuestID("guest-2"),
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	if err := store.Put(ctx, short); err != nil {
		t.Fatalf("Put short: %v", err)
	}
	advance(11 * time.Minute)
	if _, err := store.Get(ctx, short.Token); err != sessionstoreport.ErrNotFound {
		t.Fatalf("Get expired: err=%v, want ErrNotFound", err)
	}
}
