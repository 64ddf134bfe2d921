package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/platform/auth/jwks_testutil"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/auth/jwtverifier"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newJWTTestAPI(t *testing.T, allowEmails []string) (*testAPI, func(email string) string) {
	t.Helper()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	t.Cleanup(jwksSrv.Close)

	kp, err := jwks_testutil.GenerateRSAKeypair("kid-1")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}
	setKeys([]jwks_testutil.Keypair{kp})

	cfg := config.JWTConfig{
		Issuer:                 "test-iss",
		Audience:               "test-aud",
		JWKSURL:                jwksSrv.URL,
		ClockSkew:              0,
		JWKSRefreshInterval:    10 * time.Minute,
		JWKSMinRefreshInterval: 0,
		HTTPTimeout:            2 * time.Second,
	}
	now := time.Unix(1700000000, 0)
	v := jwtverifier.NewWithOptions(cfg, nil, fixedClock{t: now})

	mint := func(email string) string {
		extra := map[string]any{}
		if email != "" {
			extra["email"] = email
		}
		jwt, err := jwks_testutil.MintRS256JWTWithClaims(kp, cfg.Issuer, cfg.Audience, "admin-123", now, 5*time.Minute, extra)
		if err != nil {
			t.Fatalf("MintRS256JWTWithClaims: %v", err)
		}
		return jwt
	}

	api := newTestAPI(t, func(o *RouterOptions) {
		o.AdminAuth = NewAuthMiddleware(v, allowEmails)
	})
	return api, mint
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	t.Parallel()

	api, _ := newJWTTestAPI(t, nil)
	rec := api.do(t, call{method: http.MethodGet, path: "/admin/summary"})

	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	er := decodeJSON[ErrorResponse](t, rec)
	if !er.Error.RequestId.IsSpecified() || er.Error.RequestId.IsNull() {
		t.Fatalf("expected requestId to be set")
	}
	if rid, err := er.Error.RequestId.Get(); err != nil || rid == "" {
		t.Fatalf("expected requestId to be a non-empty string")
	}
}

func TestAuthMiddleware_MalformedHeader_401(t *testing.T) {
	t.Parallel()

	api, _ := newJWTTestAPI(t, nil)
	rec := api.do(t, call{method: http.MethodGet, path: "/admin/summary", headers: map[string]string{"Authorization": "Basic abc"}})
	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_InvalidToken_401(t *testing.T) {
	t.Parallel()

	api, _ := newJWTTestAPI(t, nil)
	rec := api.do(t, call{method: http.MethodGet, path: "/admin/summary", headers: bearer("not.a.jwt")})
	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_ValidToken_AllowsRequest(t *testing.T) {
	t.Parallel()

	api, mint := newJWTTestAPI(t, nil)
	rec := api.do(t, call{method: http.MethodGet, path: "/admin/summary", headers: bearer(mint(""))})
	expectStatus(t, rec, http.StatusOK)
}

func TestAuthMiddleware_EmailAllowlist(t *testing.T) {
	t.Parallel()

	api, mint := newJWTTestAPI(t, []string{"Planner@Example.com"})

	rec := api.do(t, call{method: http.MethodGet, path: "/admin/summary", headers: bearer(mint("someone@example.com"))})
	expectErrorCode(t, rec, http.StatusForbidden, "NOT_AN_ADMIN")

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/summary", headers: bearer(mint("planner@example.com"))})
	expectStatus(t, rec, http.StatusOK)
}

func TestBasicAuthMiddleware(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(o *RouterOptions) {
		o.AdminAuth = NewBasicAuthMiddleware("planner", "s3cret")
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	req.SetBasicAuth("planner", "wrong")
	rec := httptest.NewRecorder()
	api.h.ServeHTTP(rec, req)
	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	req.SetBasicAuth("planner", "s3cret")
	rec = httptest.NewRecorder()
	api.h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
}

func TestDevAuthMiddleware_HeaderOverridesDefault(t *testing.T) {
	t.Parallel()

	var got string
	h := NewDevAuthMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/summary", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	req.Header.Set("X-Debug-Subject", "planner-7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got != "planner-7" {
		t.Fatalf("got status=%d subject=%q", rec.Code, got)
	}
}

func TestSessionMiddleware_UnknownToken_401(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, call{method: http.MethodGet, path: "/portal/me", headers: bearer("nope")})
	expectErrorCode(t, rec, http.StatusUnauthorized, "SESSION_INVALID")

	rec = api.do(t, call{method: http.MethodGet, path: "/portal/me"})
	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestMalformedJSON_Is422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, call{method: http.MethodPost, path: "/admin/guests", body: "{"})
	expectErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}
