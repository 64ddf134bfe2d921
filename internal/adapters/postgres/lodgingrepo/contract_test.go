package lodgingrepo

import (
	"testing"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/contracttest"
	pgguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/testutil"
	guestrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	lodgingrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
)

func TestContract_PostgresLodgingRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunLodgingRepo(t,
		func(t *testing.T) (lodgingrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
		func(t *testing.T) (guestrepoport.Repository, func()) {
			t.Helper()
			return pgguestrepo.NewRepo(pool), nil
		},
	)
}
