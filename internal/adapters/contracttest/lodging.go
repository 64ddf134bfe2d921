package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	lodgingrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
)

// RunLodgingRepo exercises locations, units and assignments. Guests are seeded through
// the guest repository because assignments reference them.
func RunLodgingRepo(t *testing.T, newRepo LodgingRepoFactory, newGuests GuestRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	guests, gCleanup := newGuests(t)
	if gCleanup != nil {
		t.Cleanup(gCleanup)
	}

	now := time.Unix(5000, 0).UTC()
	seed := make([]domain.GuestID, 0, 3)
	for _, name := range []string{"Ann", "Ben", "Cy"} {
		g := newGuest(name, "Guest", nil, now)
		if err := guests.Create(ctx, g); err != nil {
			t.Fatalf("seed guest %s: %v", name, err)
		}
		seed = append(seed, g.ID)
	}

	checkIn := time.Date(2026, 9, 18, 15, 0, 0, 0, time.UTC)
	lodge := domain.LodgingLocation{
		ID:        domain.LodgingLocationID(uuid.NewString()),
		Name:      "Pine Lodge",
		Address:   strPtr("1 Lake Rd"),
		CheckIn:   &checkIn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cabins := domain.LodgingLocation{ID: domain.LodgingLocationID(uuid.NewString()), Name: "cabins", CreatedAt: now, UpdatedAt: now}
	for _, l := range []domain.LodgingLocation{lodge, cabins} {
		if err := repo.CreateLocation(ctx, l); err != nil {
			t.Fatalf("CreateLocation %s: %v", l.Name, err)
		}
	}
	locs, err := repo.ListLocations(ctx)
	if err != nil || len(locs) != 2 || locs[0].ID != cabins.ID {
		t.Fatalf("ListLocations: %#v err=%v", locs, err)
	}
	gotLoc, err := repo.GetLocation(ctx, lodge.ID)
	if err != nil || gotLoc.Address == nil || *gotLoc.Address != "1 Lake Rd" || gotLoc.CheckIn == nil || !gotLoc.CheckIn.Equal(checkIn) || gotLoc.CheckOut != nil {
		t.Fatalf("GetLocation: %#v err=%v", gotLoc, err)
	}

	lodge.Name = "Pine Lodge North"
	lodge.Address = nil
	if err := repo.UpdateLocation(ctx, lodge); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	gotLoc, _ = repo.GetLocation(ctx, lodge.ID)
	if gotLoc.Name != "Pine Lodge North" || gotLoc.Address != nil {
		t.Fatalf("UpdateLocation not persisted: %#v", gotLoc)
	}
	if err := repo.UpdateLocation(ctx, domain.LodgingLocation{ID: domain.LodgingLocationID(uuid.NewString()), Name: "x"}); !errors.Is(err, lodgingrepoport.ErrLocationNotFound) {
		t.Fatalf("UpdateLocation unknown: err=%v", err)
	}

	// Units.
	if err := repo.CreateUnit(ctx, domain.LodgingUnit{ID: domain.LodgingUnitID(uuid.NewString()), LocationID: domain.LodgingLocationID(uuid.NewString()), Name: "x", Capacity: 1}); !errors.Is(err, lodgingrepoport.ErrLocationNotFound) {
		t.Fatalf("CreateUnit unknown location: err=%v", err)
	}
	room1 := domain.LodgingUnit{ID: domain.LodgingUnitID(uuid.NewString()), LocationID: lodge.ID, Name: "Room 1", Capacity: 2, Notes: strPtr("queen bed"), CreatedAt: now, UpdatedAt: now}
	room2 := domain.LodgingUnit{ID: domain.LodgingUnitID(uuid.NewString()), LocationID: lodge.ID, Name: "Room 2", Capacity: 1, CreatedAt: now, UpdatedAt: now}
	for _, u := range []domain.LodgingUnit{room2, room1} {
		if err := repo.CreateUnit(ctx, u); err != nil {
			t.Fatalf("CreateUnit %s: %v", u.Name, err)
		}
	}
	units, err := repo.ListUnits(ctx, lodge.ID)
	if err != nil || len(units) != 2 || units[0].ID != room1.ID || units[1].ID != room2.ID {
		t.Fatalf("ListUnits: %#v err=%v", units, err)
	}
	if units[0].Notes == nil || *units[0].Notes != "queen bed" || units[0].Capacity != 2 {
		t.Fatalf("unit fields not persisted: %#v", units[0])
	}
	if units, err := repo.ListUnits(ctx, cabins.ID); err != nil || len(units) != 0 {
		t.Fatalf("ListUnits empty location: %#v err=%v", units, err)
	}
	if err := repo.DeleteLocation(ctx, lodge.ID); !errors.Is(err, lodgingrepoport.ErrLocationHasUnits) {
		t.Fatalf("DeleteLocation with units: err=%v", err)
	}

	// Assignments and capacity.
	if err := repo.Assign(ctx, room2.ID, seed[0], now); err != nil {
		t.Fatalf("Assign ann->room2: %v", err)
	}
	if err := repo.Assign(ctx, room2.ID, seed[0], now); err != nil {
		t.Fatalf("re-Assign same unit: %v", err)
	}
	if err := repo.Assign(ctx, room2.ID, seed[1], now); !errors.Is(err, lodgingrepoport.ErrUnitFull) {
		t.Fatalf("Assign into full unit: err=%v, want ErrUnitFull", err)
	}
	if err := repo.Assign(ctx, domain.LodgingUnitID(uuid.NewString()), seed[1], now); !errors.Is(err, lodgingrepoport.ErrUnitNotFound) {
		t.Fatalf("Assign unknown unit: err=%v", err)
	}
	// Moving frees the previous unit.
	later := now.Add(time.Minute)
	if err := repo.Assign(ctx, room1.ID, seed[0], later); err != nil {
		t.Fatalf("move ann->room1: %v", err)
	}
	if err := repo.Assign(ctx, room2.ID, seed[1], later); err != nil {
		t.Fatalf("Assign ben->room2 after move: %v", err)
	}
	a, err := repo.GetAssignment(ctx, seed[0])
	if err != nil || a.UnitID != room1.ID || !a.AssignedAt.Equal(later) {
		t.Fatalf("GetAssignment: %#v err=%v", a, err)
	}
	all, err := repo.ListAssignments(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAssignments: %#v err=%v", all, err)
	}

	if err := repo.DeleteUnit(ctx, room2.ID); !errors.Is(err, lodgingrepoport.ErrUnitOccupied) {
		t.Fatalf("DeleteUnit occupied: err=%v", err)
	}
	removed, err := repo.Unassign(ctx, seed[1])
	if err != nil || removed.UnitID != room2.ID {
		t.Fatalf("Unassign: %#v err=%v", removed, err)
	}
	if _, err := repo.Unassign(ctx, seed[1]); !errors.Is(err, lodgingrepoport.ErrNotAssigned) {
		t.Fatalf("Unassign twice: err=%v", err)
	}
	if _, err := repo.GetAssignment(ctx, seed[2]); !errors.Is(err, lodgingrepoport.ErrNotAssigned) {
		t.Fatalf("GetAssignment none: err=%v", err)
	}

	room2.Name = "Room Two"
	room2.Capacity = 3
	if err := repo.UpdateUnit(ctx, room2); err != nil {
		t.Fatalf("UpdateUnit: %v", err)
	}
	gotUnit, err := repo.GetUnit(ctx, room2.ID)
	if err != nil || gotUnit.Name != "Room Two" || gotUnit.Capacity != 3 || gotUnit.LocationID != lodge.ID {
		t.Fatalf("GetUnit: %#v err=%v", gotUnit, err)
	}
	if err := repo.DeleteUnit(ctx, room2.ID); err != nil {
		t.Fatalf("DeleteUnit: %v", err)
	}
	if _, err := repo.GetUnit(ctx, room2.ID); !errors.Is(err, lodgingrepoport.ErrUnitNotFound) {
		t.Fatalf("GetUnit deleted: err=%v", err)
	}
	if err := repo.DeleteLocation(ctx, cabins.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}
	if _, err := repo.GetLocation(ctx, cabins.ID); !errors.Is(err, lodgingrepoport.ErrLocationNotFound) {
		t.Fatalf("GetLocation deleted: err=%v", err)
	}
}
