package sessionstore

import (
	"testing"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/contracttest"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	sessionstoreport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

func TestContract_SessionStore(t *testing.T) {
	contracttest.RunSessionStore(t, func(t *testing.T, now time.Time) (sessionstoreport.Store, contracttest.AdvanceFunc, func()) {
		t.Helper()
		c := memclock.NewManualClock(now)
		return NewStore(c), c.Advance, nil
	})
}
