package guestrepo

import (
	"testing"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/contracttest"
	pggrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/testutil"
	grouprepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	guestrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

func TestContract_PostgresGuestRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunGuestRepo(t,
		func(t *testing.T) (guestrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
		func(t *testing.T) (grouprepoport.Repository, func()) {
			t.Helper()
			return pggrouprepo.NewRepo(pool), nil
		},
	)
}
