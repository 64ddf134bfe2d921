package grouprepo

import (
	"testing"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/contracttest"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/testutil"
	grouprepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
)

func TestContract_PostgresGroupRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunGroupRepo(t, func(t *testing.T) (grouprepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
