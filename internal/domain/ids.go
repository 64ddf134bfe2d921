package domain

// SubjectID is the authenticated admin subject extracted from JWT claims (typically "sub"),
// or the basic-auth username. Its format is controlled by the identity provider.
type SubjectID string

// GuestID is an internal identifier for a guest record.
type GuestID string

// GroupID is an internal identifier for a household group.
type GroupID string

// LodgingLocationID identifies a lodging location (hotel, house, campsite).
type LodgingLocationID string

// LodgingUnitID identifies a room/unit at a lodging location.
type LodgingUnitID string

// ActivityEventID identifies a recorded activity event.
type ActivityEventID string
