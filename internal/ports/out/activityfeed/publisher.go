package activityfeed

import "github.com/marigold-events/wedding-rsvp-api/internal/domain"

// Publisher fans recorded activity out to live admin dashboards.
// Publish must not block on slow subscribers.
type Publisher interface {
	Publish(e domain.ActivityEvent)
}
