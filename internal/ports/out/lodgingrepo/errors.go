package lodgingrepo

import "errors"

var (
	ErrLocationNotFound = errors.New("lodging location not found")
	ErrUnitNotFound     = errors.New("lodging unit not found")
	ErrNotAssigned      = errors.New("guest has no lodging assignment")

	// ErrLocationHasUnits is returned when deleting a location that still has units.
	ErrLocationHasUnits = errors.New("lodging location has units")
	// ErrUnitOccupied is returned when deleting a unit that still has guests assigned.
	ErrUnitOccupied = errors.New("lodging unit is occupied")
	// ErrUnitFull is returned by Assign when the unit is at capacity.
	ErrUnitFull = errors.New("lodging unit is full")
)
