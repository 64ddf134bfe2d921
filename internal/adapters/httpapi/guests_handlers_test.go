package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type guestEnvelope struct {
	Guest Guest `json:"guest"`
}

type guestList struct {
	Guests []Guest `json:"guests"`
}

func TestGuests_CreateGetPatchDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	g := api.createGuest(t, map[string]any{
		"firstName": "  Ada ",
		"lastName":  "Lovelace",
		"email":     "ADA@Example.com",
		"phone":     "(415) 555-0100",
	})
	if g.FirstName != "Ada" || g.Email == nil || string(*g.Email) != "ada@example.com" {
		t.Fatalf("unexpected guest: %+v", g)
	}
	if g.Phone == nil || *g.Phone != "+14155550100" {
		t.Fatalf("phone: got %v", g.Phone)
	}
	if g.Rsvp != "PENDING" || g.InviteStatus != "NOT_SENT" || g.AccessCode == "" || !g.IsAdult {
		t.Fatalf("defaults not applied: %+v", g)
	}

	rec := api.do(t, call{method: http.MethodGet, path: "/admin/guests/" + g.GuestId})
	expectStatus(t, rec, http.StatusOK)

	// null clears, omitted keeps.
	rec = api.do(t, call{method: http.MethodPatch, path: "/admin/guests/" + g.GuestId, body: `{"email":null,"plusOnes":2}`})
	expectStatus(t, rec, http.StatusOK)
	patched := decodeJSON[guestEnvelope](t, rec).Guest
	if patched.Email != nil || patched.PlusOnes != 2 || patched.Phone == nil {
		t.Fatalf("patch semantics: %+v", patched)
	}

	rec = api.do(t, call{method: http.MethodPatch, path: "/admin/guests/" + g.GuestId, body: `{"plusOnes":9}`})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, call{method: http.MethodDelete, path: "/admin/guests/" + g.GuestId})
	expectStatus(t, rec, http.StatusNoContent)

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests/" + g.GuestId})
	expectErrorCode(t, rec, http.StatusNotFound, "GUEST_NOT_FOUND")
}

func TestGuests_DuplicateEmail_409(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.createGuest(t, map[string]any{"firstName": "Ada", "email": "ada@example.com"})
	rec := api.do(t, call{method: http.MethodPost, path: "/admin/guests", body: map[string]any{"firstName": "Other", "email": "Ada@Example.com"}})
	expectErrorCode(t, rec, http.StatusConflict, "GUEST_EMAIL_IN_USE")
}

func TestGuests_ListFilters(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	a := api.createGuest(t, map[string]any{"firstName": "Ada", "lastName": "Byron"})
	api.createGuest(t, map[string]any{"firstName": "Charles", "lastName": "Babbage"})

	rec := api.do(t, call{method: http.MethodPut, path: "/admin/guests/" + a.GuestId + "/rsvp", body: map[string]any{"status": "ATTENDING", "plusOnes": 1}})
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests"})
	expectStatus(t, rec, http.StatusOK)
	all := decodeJSON[guestList](t, rec).Guests
	if len(all) != 2 || all[0].LastName != "Babbage" {
		t.Fatalf("want 2 guests ordered by last name, got %+v", all)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?rsvp=ATTENDING"})
	attending := decodeJSON[guestList](t, rec).Guests
	if len(attending) != 1 || attending[0].GuestId != a.GuestId {
		t.Fatalf("rsvp filter: %+v", attending)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?q=charl"})
	if got := decodeJSON[guestList](t, rec).Guests; len(got) != 1 || got[0].FirstName != "Charles" {
		t.Fatalf("query filter: %+v", got)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?rsvp=MAYBE"})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?ungrouped=perhaps"})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestGuests_ImportCSV(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	csv := "first_name,last_name,email,group\n" +
		"Ada,Lovelace,ada@example.com,The Lovelace Family\n" +
		"Byron,Lovelace,,Lovelace household\n" +
		",,,\n" +
		",Nobody,x@example.com,\n"

	req := httptest.NewRequest(http.MethodPost, "/admin/guests/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	rec := httptest.NewRecorder()
	api.h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)

	res := decodeJSON[ImportResponse](t, rec)
	if res.Created != 2 || res.Skipped != 1 || len(res.Errors) != 1 || res.Errors[0].Row != 5 {
		t.Fatalf("import result: %+v", res)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/groups"})
	groups := decodeJSON[struct {
		Groups []Group `json:"groups"`
	}](t, rec).Groups
	if len(groups) != 1 || groups[0].MemberCount != 2 {
		t.Fatalf("want one shared group with 2 members, got %+v", groups)
	}
}

func TestGuests_ImportRequiresCSV(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, call{method: http.MethodPost, path: "/admin/guests/import", body: map[string]any{"rows": 1}})
	expectErrorCode(t, rec, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
}

func TestGuests_GroupAssignments(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	a := api.createGuest(t, map[string]any{"firstName": "Ada"})
	b := api.createGuest(t, map[string]any{"firstName": "Byron"})

	rec := api.do(t, call{method: http.MethodPost, path: "/admin/guests/group-assignments", body: map[string]any{
		"guestIds":  []string{a.GuestId, b.GuestId, a.GuestId, "ghost"},
		"groupName": "The Lovelaces",
	}})
	expectStatus(t, rec, http.StatusOK)
	res := decodeJSON[GroupAssignmentResponse](t, rec)
	if !res.GroupCreated || res.Group == nil || len(res.Changed) != 2 || len(res.Unknown) != 1 {
		t.Fatalf("assign result: %+v", res)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?groupId=" + res.Group.GroupId})
	if got := decodeJSON[guestList](t, rec).Guests; len(got) != 2 {
		t.Fatalf("group members: %+v", got)
	}

	rec = api.do(t, call{method: http.MethodDelete, path: "/admin/guests/group-assignments", body: map[string]any{"guestIds": []string{a.GuestId}}})
	expectStatus(t, rec, http.StatusOK)
	res = decodeJSON[GroupAssignmentResponse](t, rec)
	if len(res.Changed) != 1 || res.Changed[0] != a.GuestId {
		t.Fatalf("unassign result: %+v", res)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests?ungrouped=true"})
	if got := decodeJSON[guestList](t, rec).Guests; len(got) != 1 || got[0].GuestId != a.GuestId {
		t.Fatalf("ungrouped: %+v", got)
	}
}

func TestGuests_TimelineAndSummary(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	g := api.createGuest(t, map[string]any{"firstName": "Ada", "email": "ada@example.com"})
	rec := api.do(t, call{method: http.MethodPut, path: "/admin/guests/" + g.GuestId + "/rsvp", body: map[string]any{"status": "ATTENDING", "plusOnes": 2}})
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests/" + g.GuestId + "/timeline?days=7"})
	expectStatus(t, rec, http.StatusOK)
	tl := decodeJSON[TimelineResponse](t, rec)
	if len(tl.Days) != 1 || tl.Days[0].Label != "TODAY" || len(tl.Days[0].Items) != 1 || tl.Days[0].Items[0].Kind != "RSVP_ACCEPTED" {
		t.Fatalf("timeline: %+v", tl)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests/" + g.GuestId + "/timeline?days=abc"})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = api.do(t, call{method: http.MethodGet, path: "/admin/guests/" + g.GuestId + "/timeline?days=400"})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/summary"})
	expectStatus(t, rec, http.StatusOK)
	sum := decodeJSON[SummaryResponse](t, rec)
	if sum.Total != 1 || sum.Attending != 1 || sum.ExpectedHeadcount != 3 || sum.WithoutLodging != 1 {
		t.Fatalf("summary: %+v", sum)
	}
}
