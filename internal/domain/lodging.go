package domain

import "time"

type LodgingLocation struct {
	ID      LodgingLocationID
	Name    string
	Address *string

	CheckIn  *time.Time // date-only semantics at the edges
	CheckOut *time.Time // date-only semantics at the edges

	CreatedAt time.Time
	UpdatedAt time.Time
}

type LodgingUnit struct {
	ID         LodgingUnitID
	LocationID LodgingLocationID
	Name       string
	Capacity   int
	Notes      *string

	Occupants []GuestSummary

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u LodgingUnit) Full() bool { return len(u.Occupants) >= u.Capacity }

type LodgingAssignment struct {
	UnitID     LodgingUnitID
	GuestID    GuestID
	AssignedAt time.Time
}
