package lodging

import (
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
)

type CreateLocationInput struct {
	Name     string
	Address  *string
	CheckIn  *time.Time
	CheckOut *time.Time
}

type UpdateLocationInput struct {
	Name     patch.Field[string] // cannot be null
	Address  patch.Field[string]
	CheckIn  patch.Field[time.Time]
	CheckOut patch.Field[time.Time]
}

type CreateUnitInput struct {
	Name     string
	Capacity int
	Notes    *string
}

type UpdateUnitInput struct {
	Name     patch.Field[string] // cannot be null
	Capacity patch.Field[int]    // cannot be null
	Notes    patch.Field[string]
}
