package lodgingrepo

import (
	"context"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// Repository provides access to lodging locations, units and guest assignments.
//
// Result ordering expectations:
// - ListLocations: lower(name) ascending, then ID.
// - ListUnits: lower(name) ascending, then ID. Occupants are left empty; the lodging
//   service joins them from assignments and guests.
// - ListAssignments: unit ID, then guest ID.
type Repository interface {
	CreateLocation(ctx context.Context, l domain.LodgingLocation) error
	UpdateLocation(ctx context.Context, l domain.LodgingLocation) error
	DeleteLocation(ctx context.Context, id domain.LodgingLocationID) error
	GetLocation(ctx context.Context, id domain.LodgingLocationID) (domain.LodgingLocation, error)
	ListLocations(ctx context.Context) ([]domain.LodgingLocation, error)

	CreateUnit(ctx context.Context, u domain.LodgingUnit) error
	UpdateUnit(ctx context.Context, u domain.LodgingUnit) error
	DeleteUnit(ctx context.Context, id domain.LodgingUnitID) error
	GetUnit(ctx context.Context, id domain.LodgingUnitID) (domain.LodgingUnit, error)
	ListUnits(ctx context.Context, location domain.LodgingLocationID) ([]domain.LodgingUnit, error)

	// Assign places the guest in the unit, replacing any existing assignment, and enforces
	// capacity atomically (ErrUnitFull). Re-assigning a guest to its current unit is a no-op.
	Assign(ctx context.Context, unit domain.LodgingUnitID, guest domain.GuestID, at time.Time) error
	// Unassign removes the guest's assignment; ErrNotAssigned when there is none.
	Unassign(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error)
	GetAssignment(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error)
	ListAssignments(ctx context.Context) ([]domain.LodgingAssignment, error)
}
