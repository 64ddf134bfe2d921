package contracttest

import (
	"context"
	"testing"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	activityrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
)

// RunActivityRepo exercises append and the ordered, filtered List.
func RunActivityRepo(t *testing.T, newRepo ActivityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	g1 := domain.GuestID("11111111-1111-1111-1111-111111111111")
	g2 := domain.GuestID("22222222-2222-2222-2222-222222222222")
	base := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	events := []domain.ActivityEvent{
		{ID: "00000000-0000-0000-0000-00000000000a", GuestID: g1, Kind: domain.ActivityInviteSent, OccurredAt: base},
		{ID: "00000000-0000-0000-0000-00000000000b", GuestID: g1, Kind: domain.ActivityEmailOpened, OccurredAt: base.Add(time.Hour)},
		{ID: "00000000-0000-0000-0000-00000000000c", GuestID: g1, Kind: domain.ActivityRSVPAccepted, OccurredAt: base.Add(time.Hour), Payload: map[string]string{"plusOnes": "1"}},
		{ID: "00000000-0000-0000-0000-00000000000d", GuestID: g2, Kind: domain.ActivityLogin, OccurredAt: base.Add(-48 * time.Hour)},
	}
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append %s: %v", e.ID, err)
		}
	}

	all, err := repo.List(ctx, activityrepoport.Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	wantOrder := []domain.ActivityEventID{events[2].ID, events[1].ID, events[0].ID, events[3].ID}
	if len(all) != len(wantOrder) {
		t.Fatalf("List len=%d, want %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("List[%d].ID=%s, want %s", i, all[i].ID, id)
		}
	}
	if all[0].Payload["plusOnes"] != "1" || all[0].Kind != domain.ActivityRSVPAccepted || !all[0].OccurredAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("event fields not persisted: %#v", all[0])
	}

	byGuest, err := repo.List(ctx, activityrepoport.Query{GuestID: &g2})
	if err != nil || len(byGuest) != 1 || byGuest[0].ID != events[3].ID {
		t.Fatalf("List by guest: %#v err=%v", byGuest, err)
	}

	since, err := repo.List(ctx, activityrepoport.Query{Since: base})
	if err != nil || len(since) != 3 {
		t.Fatalf("List since (inclusive): len=%d err=%v", len(since), err)
	}

	limited, err := repo.List(ctx, activityrepoport.Query{GuestID: &g1, Limit: 2})
	if err != nil || len(limited) != 2 || limited[0].ID != events[2].ID {
		t.Fatalf("List limit: %#v err=%v", limited, err)
	}
}
