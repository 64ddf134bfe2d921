package guests

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

func TestService_ImportCSV_CreatesUpdatesAndReportsRows(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	existing, err := f.svc.CreateGuest(ctx, CreateGuestInput{FirstName: "Ada", LastName: "Lovelace", Email: strPtr("ada@example.com")})
	if err != nil {
		t.Fatalf("CreateGuest err=%v", err)
	}

	csv := "\ufeffFirst Name,last_name,email,group,plus_ones,dietary_notes\n" +
		"Ada,Lovelace,ADA@example.com,Lovelace Family,1,vegan\n" +
		"Byron,Lovelace,,The Lovelace Household,,\n" +
		",,,,,\n" +
		",NoFirst,x@example.com,,,\n" +
		"Grace,Hopper,grace@example.com,,9,\n" +
		"Alan,Turing,not-an-email,,,\n"

	res, err := f.svc.ImportCSV(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCSV err=%v", err)
	}
	if res.Created != 1 || res.Updated != 1 || res.Skipped != 1 {
		t.Fatalf("res=%+v", res)
	}
	gotRows := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		gotRows = append(gotRows, e.Row)
	}
	if diff := cmp.Diff([]int{5, 6, 7}, gotRows); diff != "" {
		t.Fatalf("error rows mismatch (-want +got):\n%s", diff)
	}

	ada, err := f.svc.GetGuest(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetGuest err=%v", err)
	}
	if ada.PlusOnes != 1 || ada.DietaryNotes == nil || *ada.DietaryNotes != "vegan" || ada.GroupID == nil {
		t.Fatalf("ada=%+v", ada)
	}

	groups, err := f.groups.List(ctx)
	if err != nil {
		t.Fatalf("List groups err=%v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups=%v, want a single canonical Lovelace group", groups)
	}

	// Re-import is idempotent: Byron matches by full name.
	res2, err := f.svc.ImportCSV(ctx, strings.NewReader("first_name,last_name\nByron,Lovelace\n"))
	if err != nil {
		t.Fatalf("ImportCSV again err=%v", err)
	}
	if res2.Created != 0 || res2.Updated != 1 {
		t.Fatalf("res2=%+v", res2)
	}
}

func TestService_ImportCSV_RejectsBadHeader(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.ImportCSV(context.Background(), strings.NewReader("name,email\nAda,a@example.com\n"))
	wantCode(t, err, 422, "VALIDATION_ERROR")

	_, err = f.svc.ImportCSV(context.Background(), strings.NewReader(""))
	wantCode(t, err, 422, "VALIDATION_ERROR")
}

func TestService_ImportCSV_RowLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.svc.MaxImportRows = 1

	_, err := f.svc.ImportCSV(context.Background(), strings.NewReader("first_name\nA\nB\n"))
	wantCode(t, err, 422, "VALIDATION_ERROR")
}

func TestService_Summary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.svc.CreateGuest(ctx, CreateGuestInput{FirstName: "Ada", PlusOnes: 2})
	b, _ := f.svc.CreateGuest(ctx, CreateGuestInput{FirstName: "Byron"})
	_, _ = f.svc.CreateGuest(ctx, CreateGuestInput{FirstName: "Claire"})
	if _, err := f.svc.SetRSVP(ctx, a.ID, RSVPInput{Status: domain.RSVPAttending}, "admin"); err != nil {
		t.Fatalf("SetRSVP err=%v", err)
	}
	if _, err := f.svc.SetRSVP(ctx, b.ID, RSVPInput{Status: domain.RSVPDeclined}, "admin"); err != nil {
		t.Fatalf("SetRSVP err=%v", err)
	}
	_ = f.lodging.CreateLocation(ctx, domain.LodgingLocation{ID: "loc", Name: "Inn"})
	_ = f.lodging.CreateUnit(ctx, domain.LodgingUnit{ID: "u", LocationID: "loc", Name: "1", Capacity: 4})
	if err := f.lodging.Assign(ctx, "u", a.ID, f.clk.Now()); err != nil {
		t.Fatalf("Assign err=%v", err)
	}

	got, err := f.svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary err=%v", err)
	}
	want := Summary{Total: 3, Pending: 1, Attending: 1, Declined: 1, ExpectedHeadcount: 3, WithoutLodging: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}
