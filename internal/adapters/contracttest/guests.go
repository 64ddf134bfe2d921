package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	grouprepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	guestrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

func newGuest(first, last string, email *string, now time.Time) guestrepoport.Guest {
	return guestrepoport.Guest{Guest: domain.Guest{
		ID:           domain.GuestID(uuid.NewString()),
		FirstName:    first,
		LastName:     last,
		Email:        email,
		RSVP:         domain.RSVPPending,
		IsAdult:      true,
		InviteStatus: domain.InviteNotSent,
		AccessCode:   "ABC123",
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
}

func strPtr(s string) *string { return &s }

// RunGuestRepo exercises the guest repository. Groups are created through the group
// repository so backends with foreign keys can be verified too.
func RunGuestRepo(t *testing.T, newGuests GuestRepoFactory, newGroups GroupRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newGuests(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	groups, gCleanup := newGroups(t)
	if gCleanup != nil {
		t.Cleanup(gCleanup)
	}

	now := time.Unix(1000, 0).UTC()
	alice := newGuest("Alice", "Zephyr", strPtr("alice@example.com"), now)
	alice.Phone = strPtr("+15551234567")
	alice.DietaryNotes = strPtr("vegetarian")
	if err := repo.Create(ctx, alice); err != nil {
		t.Fatalf("Create alice: %v", err)
	}
	got, err := repo.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FirstName != "Alice" || got.Email == nil || *got.Email != "alice@example.com" ||
		got.Phone == nil || *got.Phone != "+15551234567" || got.DietaryNotes == nil || got.AccessCode != "ABC123" {
		t.Fatalf("unexpected guest: %#v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, now)
	}

	if _, err := repo.GetByID(ctx, domain.GuestID(uuid.NewString())); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown: err=%v, want ErrNotFound", err)
	}

	// Email lookups are case-insensitive and emails are unique.
	if g, err := repo.GetByEmail(ctx, "ALICE@example.com"); err != nil || g.ID != alice.ID {
		t.Fatalf("GetByEmail: id=%v err=%v", g.ID, err)
	}
	dup := newGuest("Other", "Alice", strPtr("Alice@Example.com"), now)
	if err := repo.Create(ctx, dup); !errors.Is(err, guestrepoport.ErrEmailInUse) {
		t.Fatalf("Create duplicate email: err=%v, want ErrEmailInUse", err)
	}
	if err := repo.Create(ctx, alice); !errors.Is(err, guestrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate id: err=%v, want ErrAlreadyExists", err)
	}

	bob := newGuest("bob", "adams", strPtr("bob@example.com"), now)
	bob.RSVP = domain.RSVPAttending
	bob.PlusOnes = 2
	carol := newGuest("Carol", "Adams", nil, now)
	for _, g := range []guestrepoport.Guest{bob, carol} {
		if err := repo.Create(ctx, g); err != nil {
			t.Fatalf("Create %s: %v", g.FirstName, err)
		}
	}

	// Ordering: lower(last), lower(first), id.
	all, err := repo.List(ctx, guestrepoport.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != bob.ID || all[1].ID != carol.ID || all[2].ID != alice.ID {
		t.Fatalf("unexpected ordering: %v", guestNames(all))
	}

	attending := domain.RSVPAttending
	res, err := repo.List(ctx, guestrepoport.Filter{RSVP: &attending})
	if err != nil || len(res) != 1 || res[0].ID != bob.ID || res[0].PlusOnes != 2 {
		t.Fatalf("List RSVP filter: %v err=%v", guestNames(res), err)
	}

	res, err = repo.List(ctx, guestrepoport.Filter{Query: "ada CAR"})
	if err != nil || len(res) != 1 || res[0].ID != carol.ID {
		t.Fatalf("List query: %v err=%v", guestNames(res), err)
	}
	res, err = repo.List(ctx, guestrepoport.Filter{Query: "example.com"})
	if err != nil || len(res) != 2 {
		t.Fatalf("List query by email: %v err=%v", guestNames(res), err)
	}

	// Groups.
	gid := domain.GroupID(uuid.NewString())
	if err := groups.Create(ctx, domain.Group{ID: gid, Name: "The Adams Family", CanonicalKey: "adams", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Create group: %v", err)
	}
	if err := repo.SetGroup(ctx, []domain.GuestID{bob.ID, carol.ID, domain.GuestID(uuid.NewString())}, &gid); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	res, err = repo.List(ctx, guestrepoport.Filter{GroupID: &gid})
	if err != nil || len(res) != 2 {
		t.Fatalf("List by group: %v err=%v", guestNames(res), err)
	}
	res, err = repo.List(ctx, guestrepoport.Filter{Ungrouped: true})
	if err != nil || len(res) != 1 || res[0].ID != alice.ID {
		t.Fatalf("List ungrouped: %v err=%v", guestNames(res), err)
	}
	if err := repo.SetGroup(ctx, []domain.GuestID{carol.ID}, nil); err != nil {
		t.Fatalf("SetGroup nil: %v", err)
	}
	g, _ := repo.GetByID(ctx, carol.ID)
	if g.GroupID != nil {
		t.Fatalf("expected carol ungrouped, got %v", *g.GroupID)
	}

	// Update: invite token hash, email change releases the old address.
	sentAt := now.Add(time.Hour)
	alice.InviteTokenHash = "deadbeef"
	alice.InviteStatus = domain.InviteSent
	alice.InviteSentAt = &sentAt
	alice.Email = strPtr("alice.z@example.com")
	alice.UpdatedAt = sentAt
	if err := repo.Update(ctx, alice); err != nil {
		t.Fatalf("Update: %v", err)
	}
	byHash, err := repo.GetByInviteTokenHash(ctx, "deadbeef")
	if err != nil || byHash.ID != alice.ID || byHash.InviteStatus != domain.InviteSent || byHash.InviteSentAt == nil {
		t.Fatalf("GetByInviteTokenHash: %#v err=%v", byHash, err)
	}
	if _, err := repo.GetByInviteTokenHash(ctx, "nope"); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("GetByInviteTokenHash unknown: err=%v", err)
	}
	if _, err := repo.GetByEmail(ctx, "alice@example.com"); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("old email still resolves: err=%v", err)
	}
	bob.Email = strPtr("ALICE.Z@example.com")
	if err := repo.Update(ctx, bob); !errors.Is(err, guestrepoport.ErrEmailInUse) {
		t.Fatalf("Update to taken email: err=%v, want ErrEmailInUse", err)
	}
	ghost := newGuest("Ghost", "", nil, now)
	if err := repo.Update(ctx, ghost); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("Update unknown: err=%v, want ErrNotFound", err)
	}

	runInviteWrites(t, repo, now)

	if err := repo.Delete(ctx, carol.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, carol.ID); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("Delete twice: err=%v, want ErrNotFound", err)
	}
}

// runInviteWrites covers the narrow invite writes: they touch only invite columns and a
// token can be consumed exactly once, even under concurrency.
func runInviteWrites(t *testing.T, repo guestrepoport.Repository, now time.Time) {
	t.Helper()
	ctx := context.Background()

	dana := newGuest("Dana", "Invitee", strPtr("dana@example.com"), now)
	dana.AccessCode = ""
	dana.RSVP = domain.RSVPAttending
	dana.PlusOnes = 2
	if err := repo.Create(ctx, dana); err != nil {
		t.Fatalf("Create dana: %v", err)
	}

	sentAt := now.Add(2 * time.Hour)
	marked, err := repo.MarkInviteSent(ctx, dana.ID, "hash-dana", "XYZ789", sentAt)
	if err != nil {
		t.Fatalf("MarkInviteSent: %v", err)
	}
	if marked.InviteStatus != domain.InviteSent || marked.InviteTokenHash != "hash-dana" ||
		marked.InviteSentAt == nil || !marked.InviteSentAt.Equal(sentAt) || marked.AccessCode != "XYZ789" {
		t.Fatalf("MarkInviteSent result: %#v", marked)
	}
	if marked.RSVP != domain.RSVPAttending || marked.PlusOnes != 2 || marked.FirstName != "Dana" {
		t.Fatalf("MarkInviteSent touched other fields: %#v", marked)
	}
	// An existing access code is kept.
	again, err := repo.MarkInviteSent(ctx, dana.ID, "hash-dana-2", "OTHER1", sentAt)
	if err != nil || again.AccessCode != "XYZ789" || again.InviteTokenHash != "hash-dana-2" {
		t.Fatalf("MarkInviteSent reissue: %#v err=%v", again, err)
	}
	if _, err := repo.MarkInviteSent(ctx, domain.GuestID(uuid.NewString()), "h", "C", sentAt); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("MarkInviteSent unknown: err=%v, want ErrNotFound", err)
	}

	redeemedAt := sentAt.Add(time.Hour)
	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []guestrepoport.Guest
		errs []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := repo.ConsumeInviteToken(ctx, "hash-dana-2", redeemedAt)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			wins = append(wins, g)
		}()
	}
	wg.Wait()
	if len(wins) != 1 {
		t.Fatalf("ConsumeInviteToken: %d successful consumers, want 1", len(wins))
	}
	for _, err := range errs {
		if !errors.Is(err, guestrepoport.ErrNotFound) {
			t.Fatalf("ConsumeInviteToken loser: err=%v, want ErrNotFound", err)
		}
	}
	if w := wins[0]; w.ID != dana.ID || w.InviteStatus != domain.InviteRedeemed || w.InviteTokenHash != "" || w.RSVP != domain.RSVPAttending {
		t.Fatalf("ConsumeInviteToken result: %#v", w)
	}
	if _, err := repo.GetByInviteTokenHash(ctx, "hash-dana-2"); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("consumed token still resolves: err=%v", err)
	}
	if _, err := repo.ConsumeInviteToken(ctx, "", redeemedAt); !errors.Is(err, guestrepoport.ErrNotFound) {
		t.Fatalf("ConsumeInviteToken empty hash: err=%v, want ErrNotFound", err)
	}
}

// RunGroupRepo exercises the group repository.
func RunGroupRepo(t *testing.T, newRepo GroupRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	smith := domain.Group{ID: domain.GroupID(uuid.NewString()), Name: "The Smith Family", CanonicalKey: "smith", CreatedAt: now, UpdatedAt: now}
	jones := domain.Group{ID: domain.GroupID(uuid.NewString()), Name: "jones household", CanonicalKey: "jones", CreatedAt: now, UpdatedAt: now}
	for _, g := range []domain.Group{smith, jones} {
		if err := repo.Create(ctx, g); err != nil {
			t.Fatalf("Create %s: %v", g.Name, err)
		}
	}

	dup := domain.Group{ID: domain.GroupID(uuid.NewString()), Name: "Smith", CanonicalKey: "smith", CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, dup); !errors.Is(err, grouprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate key: err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByCanonicalKey(ctx, "smith")
	if err != nil || got.ID != smith.ID || got.Name != "The Smith Family" {
		t.Fatalf("GetByCanonicalKey: %#v err=%v", got, err)
	}
	if _, err := repo.GetByID(ctx, domain.GroupID(uuid.NewString())); !errors.Is(err, grouprepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown: err=%v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != jones.ID || list[1].ID != smith.ID {
		t.Fatalf("unexpected ordering: %#v", list)
	}

	// Rename onto another group's key is rejected; renaming in place is fine.
	jones.Name = "Smiths"
	jones.CanonicalKey = "smith"
	if err := repo.Update(ctx, jones); !errors.Is(err, grouprepoport.ErrAlreadyExists) {
		t.Fatalf("Update to taken key: err=%v", err)
	}
	jones.Name = "Jones"
	jones.CanonicalKey = "jones"
	jones.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, jones); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = repo.GetByID(ctx, jones.ID)
	if got.Name != "Jones" || !got.UpdatedAt.Equal(jones.UpdatedAt) {
		t.Fatalf("Update not persisted: %#v", got)
	}

	if err := repo.Delete(ctx, smith.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByCanonicalKey(ctx, "smith"); !errors.Is(err, grouprepoport.ErrNotFound) {
		t.Fatalf("deleted key still resolves: err=%v", err)
	}
	// The canonical key is free again.
	if err := repo.Create(ctx, dup); err != nil {
		t.Fatalf("Create after delete: %v", err)
	}
	if err := repo.Delete(ctx, smith.ID); !errors.Is(err, grouprepoport.ErrNotFound) {
		t.Fatalf("Delete twice: err=%v", err)
	}
}

func guestNames(gs []guestrepoport.Guest) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.FullName())
	}
	return out
}
