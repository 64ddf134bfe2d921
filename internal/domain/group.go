package domain

import "time"

// Group is a household label used to RSVP and message guests together.
type Group struct {
	ID GroupID

	Name string
	// CanonicalKey is the uniqueness key derived from Name (see CanonicalGroupKey).
	CanonicalKey string

	// MemberCount is a read model field filled by the groups service.
	MemberCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}
