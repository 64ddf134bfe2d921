package lodging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	memlodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/lodgingrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

type fixture struct {
	svc    *Service
	guests *memguestrepo.Repo
	acts   *memactivityrepo.Repo
	clk    *memclock.ManualClock
}

func newFixture(t *testing.T, guestIDs ...string) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	guests := memguestrepo.NewRepo()
	acts := memactivityrepo.NewRepo()
	for _, id := range guestIDs {
		require.NoError(t, guests.Create(context.Background(), guestrepo.Guest{Guest: domain.Guest{
			ID: domain.GuestID(id), FirstName: id, RSVP: domain.RSVPAttending,
		}}))
	}
	svc := NewService(memlodgingrepo.NewRepo(), guests, activity.NewRecorder(acts, clk), clk)
	return fixture{svc: svc, guests: guests, acts: acts, clk: clk}
}

func (f fixture) unit(t *testing.T, capacity int) domain.LodgingUnit {
	t.Helper()
	ctx := context.Background()
	loc, err := f.svc.CreateLocation(ctx, CreateLocationInput{Name: "Lakeside Inn"})
	require.NoError(t, err)
	u, err := f.svc.CreateUnit(ctx, loc.ID, CreateUnitInput{Name: "Cabin 1", Capacity: capacity})
	require.NoError(t, err)
	return u
}

func TestService_Locations_CRUD(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC)
	out := in.AddDate(0, 0, 2)
	loc, err := f.svc.CreateLocation(ctx, CreateLocationInput{Name: " Lakeside  Inn ", Address: strPtr(" 1 Shore Rd "), CheckIn: &in, CheckOut: &out})
	require.NoError(t, err)
	assert.Equal(t, "Lakeside Inn", loc.Name)
	assert.Equal(t, "1 Shore Rd", *loc.Address)

	updated, err := f.svc.UpdateLocation(ctx, loc.ID, UpdateLocationInput{Address: patch.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, updated.Address)
	assert.NotNil(t, updated.CheckIn)

	_, err = f.svc.UpdateLocation(ctx, loc.ID, UpdateLocationInput{CheckOut: patch.Some(in.AddDate(0, 0, -1))})
	assert.True(t, apperr.Is(err, "VALIDATION_ERROR"), "err=%v", err)

	_, err = f.svc.CreateUnit(ctx, loc.ID, CreateUnitInput{Name: "Room", Capacity: 2})
	require.NoError(t, err)
	err = f.svc.DeleteLocation(ctx, loc.ID)
	assert.True(t, apperr.Is(err, "LOCATION_HAS_UNITS"), "err=%v", err)

	_, err = f.svc.ListUnits(ctx, "missing")
	assert.True(t, apperr.Is(err, "LOCATION_NOT_FOUND"), "err=%v", err)
}

func TestService_CreateUnit_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	loc, err := f.svc.CreateLocation(ctx, CreateLocationInput{Name: "Inn"})
	require.NoError(t, err)
	for _, c := range []int{0, -1, MaxUnitCapacity + 1} {
		_, err := f.svc.CreateUnit(ctx, loc.ID, CreateUnitInput{Name: "Room", Capacity: c})
		assert.True(t, apperr.Is(err, "VALIDATION_ERROR"), "capacity=%d err=%v", c, err)
	}
}

func TestService_AssignGuest_CapacityAndMove(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "ada", "byron", "claire")
	ctx := context.Background()

	small := f.unit(t, 2)
	loc2, err := f.svc.CreateLocation(ctx, CreateLocationInput{Name: "Annex"})
	require.NoError(t, err)
	other, err := f.svc.CreateUnit(ctx, loc2.ID, CreateUnitInput{Name: "Loft", Capacity: 4})
	require.NoError(t, err)

	got, err := f.svc.AssignGuest(ctx, small.ID, "ada")
	require.NoError(t, err)
	require.Len(t, got.Occupants, 1)
	_, err = f.svc.AssignGuest(ctx, small.ID, "byron")
	require.NoError(t, err)

	_, err = f.svc.AssignGuest(ctx, small.ID, "claire")
	ae, ok := apperr.As(err)
	require.True(t, ok, "err=%v", err)
	assert.Equal(t, 409, ae.Status)
	assert.Equal(t, "UNIT_FULL", ae.Code)

	// Re-assigning to the same unit is a no-op, even when full.
	_, err = f.svc.AssignGuest(ctx, small.ID, "ada")
	require.NoError(t, err)

	moved, err := f.svc.AssignGuest(ctx, other.ID, "ada")
	require.NoError(t, err)
	assert.Len(t, moved.Occupants, 1)

	units, err := f.svc.ListUnits(ctx, small.LocationID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Len(t, units[0].Occupants, 1)
	assert.Equal(t, domain.GuestID("byron"), units[0].Occupants[0].ID)

	id := domain.GuestID("ada")
	es, err := f.acts.List(ctx, activityrepo.Query{GuestID: &id})
	require.NoError(t, err)
	require.Len(t, es, 2)
	for _, e := range es {
		assert.Equal(t, domain.ActivityLodgingAssigned, e.Kind)
	}

	_, err = f.svc.AssignGuest(ctx, small.ID, "ghost")
	assert.True(t, apperr.Is(err, "GUEST_NOT_FOUND"), "err=%v", err)
	_, err = f.svc.AssignGuest(ctx, "missing", "ada")
	assert.True(t, apperr.Is(err, "UNIT_NOT_FOUND"), "err=%v", err)
}

func TestService_UnassignGuest(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "ada")
	ctx := context.Background()

	u := f.unit(t, 2)
	_, err := f.svc.AssignGuest(ctx, u.ID, "ada")
	require.NoError(t, err)

	err = f.svc.DeleteUnit(ctx, u.ID)
	assert.True(t, apperr.Is(err, "UNIT_OCCUPIED"), "err=%v", err)

	f.clk.Advance(time.Minute)
	require.NoError(t, f.svc.UnassignGuest(ctx, "ada"))
	err = f.svc.UnassignGuest(ctx, "ada")
	assert.True(t, apperr.Is(err, "ASSIGNMENT_NOT_FOUND"), "err=%v", err)

	id := domain.GuestID("ada")
	es, err := f.acts.List(ctx, activityrepo.Query{GuestID: &id, Limit: 1})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, domain.ActivityLodgingUnassigned, es[0].Kind)
	assert.Equal(t, "Cabin 1", es[0].Payload["unitName"])

	require.NoError(t, f.svc.DeleteUnit(ctx, u.ID))
}

func TestService_UpdateUnit_CannotShrinkBelowOccupancy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "ada", "byron")
	ctx := context.Background()

	u := f.unit(t, 3)
	_, err := f.svc.AssignGuest(ctx, u.ID, "ada")
	require.NoError(t, err)
	_, err = f.svc.AssignGuest(ctx, u.ID, "byron")
	require.NoError(t, err)

	_, err = f.svc.UpdateUnit(ctx, u.ID, UpdateUnitInput{Capacity: patch.Some(1)})
	assert.True(t, apperr.Is(err, "UNIT_OVER_CAPACITY"), "err=%v", err)

	got, err := f.svc.UpdateUnit(ctx, u.ID, UpdateUnitInput{Capacity: patch.Some(2), Notes: patch.Some("bunk beds")})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Capacity)
	assert.Equal(t, "bunk beds", *got.Notes)
}

func strPtr(s string) *string { return &s }
