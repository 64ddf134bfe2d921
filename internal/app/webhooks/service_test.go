package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

func TestService_IngestSendGrid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := memclock.NewManualClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	guests := memguestrepo.NewRepo()
	acts := memactivityrepo.NewRepo()
	email := "ada@example.com"
	require.NoError(t, guests.Create(ctx, guestrepo.Guest{Guest: domain.Guest{ID: "ada", FirstName: "Ada", Email: &email}}))
	require.NoError(t, guests.Create(ctx, guestrepo.Guest{Guest: domain.Guest{ID: "bob", FirstName: "Bob"}}))

	svc := NewService(guests, activity.NewRecorder(acts, clk), clk)
	opened := time.Date(2026, 4, 30, 8, 0, 0, 0, time.UTC)
	res, err := svc.IngestSendGrid(ctx, []SendGridEvent{
		{Event: "open", GuestID: "bob", Email: "someone@else.com", Timestamp: opened.Unix(), EventID: "e1"},
		{Event: "open", GuestID: "bob", Timestamp: opened.Unix(), EventID: "e1"},
		{Event: "click", Email: "ADA@example.com", URL: "https://rsvp.example.com", EventID: "e2"},
		{Event: "bounce", GuestID: "ghost", Email: "ada@example.com", Reason: "mailbox full", EventID: "e3"},
		{Event: "delivered", GuestID: "bob", EventID: "e4"},
		{Event: "open", Email: "stranger@example.com", EventID: "e5"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Recorded: 3, Ignored: 1, Unmatched: 1}, res)

	bob := domain.GuestID("bob")
	es, err := acts.List(ctx, activityrepo.Query{GuestID: &bob})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, domain.ActivityEmailOpened, es[0].Kind)
	assert.True(t, es[0].OccurredAt.Equal(opened))

	ada := domain.GuestID("ada")
	es, err = acts.List(ctx, activityrepo.Query{GuestID: &ada})
	require.NoError(t, err)
	kinds := []domain.ActivityKind{es[0].Kind, es[1].Kind}
	assert.ElementsMatch(t, []domain.ActivityKind{domain.ActivityEmailClicked, domain.ActivityEmailBounced}, kinds)
}
