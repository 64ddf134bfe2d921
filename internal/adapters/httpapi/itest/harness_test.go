package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	memgrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/grouprepo"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	memidempotency "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/idempotency"
	memlodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/lodgingrepo"
	memsessionstore "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/sessionstore"
	pgactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/activityrepo"
	pggrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/grouprepo"
	pgguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/guestrepo"
	pgidempotency "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/idempotency"
	pglodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/lodgingrepo"
	postgres_testutil "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/testutil"
	redissessionstore "github.com/marigold-events/wedding-rsvp-api/internal/adapters/redis/sessionstore"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/groups"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/lodging"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/webhooks"
	activityrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	grouprepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	guestrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	idempotencyport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
	lodgingrepoport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
	sessionstoreport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type mailbox struct {
	mu   sync.Mutex
	sent []messaging.Email
}

func (m *mailbox) SendEmail(_ context.Context, e messaging.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

var inviteLink = regexp.MustCompile(`/invite/([A-Za-z0-9_-]+)`)

func (m *mailbox) lastInviteToken(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			if sub := inviteLink.FindStringSubmatch(m.sent[i].Text); sub != nil {
				return sub[1]
			}
		}
	}
	t.Fatalf("no invite sent to %s", to)
	return ""
}

type testServer struct {
	baseURL string
	client  *http.Client
	mail    *mailbox
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	var (
		guestRepo   guestrepoport.Repository
		groupRepo   grouprepoport.Repository
		lodgingRepo lodgingrepoport.Repository
		actRepo     activityrepoport.Repository
		idemStore   idempotencyport.Store
		sessions    sessionstoreport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		guestRepo = pgguestrepo.NewRepo(pool)
		groupRepo = pggrouprepo.NewRepo(pool)
		lodgingRepo = pglodgingrepo.NewRepo(pool)
		actRepo = pgactivityrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)

		mr := miniredis.RunT(t)
		rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rc.Close() })
		sessions = redissessionstore.NewWithClient(rc, clk)
	case backendMemory:
		guestRepo = memguestrepo.NewRepo()
		groupRepo = memgrouprepo.NewRepo()
		lodgingRepo = memlodgingrepo.NewRepo()
		actRepo = memactivityrepo.NewRepo()
		idemStore = memidempotency.NewStore()
		sessions = memsessionstore.NewStore(clk)
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	mail := &mailbox{}
	rec := activity.NewRecorder(actRepo, clk)
	guestSvc := guests.NewService(guestRepo, groupRepo, lodgingRepo, rec, clk)
	commsSvc := comms.NewService(guestRepo, groupRepo, rec, clk, mail, comms.Options{PortalBaseURL: "https://rsvp.example.com", Workers: 4})
	api := &httpapi.Server{
		Guests:   guestSvc,
		Groups:   groups.NewService(groupRepo, guestRepo, rec, clk),
		Lodging:  lodging.NewService(lodgingRepo, guestRepo, rec, clk),
		Comms:    commsSvc,
		Activity: activity.NewService(actRepo, guestRepo, clk),
		Webhooks: webhooks.NewService(guestRepo, rec, clk),
		Portal: portal.NewService(portal.Deps{
			Guests:   guestRepo,
			Groups:   groupRepo,
			Sessions: sessions,
			RSVP:     guestSvc,
			Invites:  commsSvc,
			Recorder: rec,
			Clock:    clk,
		}),
		Idem:         idemStore,
		Clock:        clk,
		WebhookToken: "itest-hook",
	}

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// An empty default subject means requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AdminAuth: httpapi.NewDevAuthMiddleware(""),
		Logger:    zerolog.Nop(),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		mail:    mail,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

type reqOpt func(*http.Request)

func asAdmin(subject string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Debug-Subject", subject) }
}

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withIdempotencyKey(key string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Idempotency-Key", key) }
}

func (s *testServer) doJSON(t *testing.T, method string, path string, body any, opts ...reqOpt) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, o := range opts {
		o(req)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
