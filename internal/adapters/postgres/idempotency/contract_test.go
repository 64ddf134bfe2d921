package idempotency

import (
	"testing"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/contracttest"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}
