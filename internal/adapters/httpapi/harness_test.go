package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	memgrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/grouprepo"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	memidempotency "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/idempotency"
	memlodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/lodgingrepo"
	memsessionstore "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/sessionstore"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/groups"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/lodging"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/webhooks"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

const testWebhookToken = "hook-secret"

type outbox struct {
	mu     sync.Mutex
	emails []messaging.Email
}

func (o *outbox) SendEmail(_ context.Context, m messaging.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emails = append(o.emails, m)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.emails)
}

var inviteLinkRE = regexp.MustCompile(`/invite/([A-Za-z0-9_-]+)`)

// inviteToken pulls the raw invite token out of the last email sent to addr.
func (o *outbox) inviteToken(t *testing.T, addr string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.emails) - 1; i >= 0; i-- {
		if o.emails[i].To != addr {
			continue
		}
		m := inviteLinkRE.FindStringSubmatch(o.emails[i].Text)
		if m == nil {
			t.Fatalf("no invite link in email to %s: %q", addr, o.emails[i].Text)
		}
		return m[1]
	}
	t.Fatalf("no email sent to %s", addr)
	return ""
}

type testAPI struct {
	h      http.Handler
	clk    *memclock.ManualClock
	box    *outbox
	guests *memguestrepo.Repo
	acts   *memactivityrepo.Repo
}

func newTestAPI(t *testing.T, mutate ...func(*RouterOptions)) *testAPI {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC))
	guestRepo := memguestrepo.NewRepo()
	groupRepo := memgrouprepo.NewRepo()
	lodgingRepo := memlodgingrepo.NewRepo()
	acts := memactivityrepo.NewRepo()
	box := &outbox{}

	rec := activity.NewRecorder(acts, clk)
	guestSvc := guests.NewService(guestRepo, groupRepo, lodgingRepo, rec, clk)
	commsSvc := comms.NewService(guestRepo, groupRepo, rec, clk, box, comms.Options{
		PortalBaseURL: "https://rsvp.example.com",
		Workers:       2,
	})
	s := &Server{
		Guests:   guestSvc,
		Groups:   groups.NewService(groupRepo, guestRepo, rec, clk),
		Lodging:  lodging.NewService(lodgingRepo, guestRepo, rec, clk),
		Comms:    commsSvc,
		Activity: activity.NewService(acts, guestRepo, clk),
		Webhooks: webhooks.NewService(guestRepo, rec, clk),
		Portal: portal.NewService(portal.Deps{
			Guests:   guestRepo,
			Groups:   groupRepo,
			Sessions: memsessionstore.NewStore(clk),
			RSVP:     guestSvc,
			Invites:  commsSvc,
			Recorder: rec,
			Clock:    clk,
		}),
		Idem:         memidempotency.NewStore(),
		Clock:        clk,
		WebhookToken: testWebhookToken,
	}
	o := RouterOptions{
		AdminAuth: NewDevAuthMiddleware("admin-1"),
		Logger:    zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&o)
	}
	return &testAPI{h: NewRouter(s, o), clk: clk, box: box, guests: guestRepo, acts: acts}
}

type call struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func (a *testAPI) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %T: %v body=%s", out, err, rec.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	er := decodeJSON[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("error code: got %q want %q", er.Error.Code, code)
	}
}

// createGuest creates a guest through the admin API.
func (a *testAPI) createGuest(t *testing.T, body map[string]any) Guest {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/admin/guests", body: body})
	expectStatus(t, rec, http.StatusCreated)
	return decodeJSON[struct {
		Guest Guest `json:"guest"`
	}](t, rec).Guest
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
