package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/auth/jwtverifier"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/config"
)

func testCmd() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd, out
}

func opts(url string) *globalOpts {
	return &globalOpts{apiURL: url, subject: "planner-1", timeout: 5 * time.Second}
}

func TestImport_PostsCSVAndPrintsCounts(t *testing.T) {
	t.Parallel()

	var gotBody, gotType, gotSubject string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/guests/import", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotSubject = r.Header.Get("X-Debug-Subject")
		_ = json.NewEncoder(w).Encode(httpapi.ImportResponse{
			Created: 2, Updated: 1,
			Errors: []httpapi.ImportRowError{{Row: 4, Message: "email is invalid"}},
		})
	}))
	defer srv.Close()

	path := t.TempDir() + "/guests.csv"
	csv := "firstName,lastName,email\nAda,Lovelace,ada@example.com\n"
	require.NoError(t, writeFile(path, csv))

	cmd, out := testCmd()
	require.NoError(t, runImport(cmd, opts(srv.URL), path))

	assert.Equal(t, csv, gotBody)
	assert.Equal(t, "text/csv", gotType)
	assert.Equal(t, "planner-1", gotSubject)
	assert.Contains(t, out.String(), "created 2, updated 1, skipped 0")
	assert.Contains(t, out.String(), "row 4: email is invalid")
}

func TestImport_MissingFile(t *testing.T) {
	t.Parallel()
	cmd, _ := testCmd()
	err := runImport(cmd, opts("http://127.0.0.1:1"), t.TempDir()+"/nope.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestTimeline_PrintsDayBuckets(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/guests/g-1/timeline", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(httpapi.TimelineResponse{Days: []httpapi.DayBucket{{
			Day: "2026-06-01", Label: "Today", Opens: 2, Clicks: 1,
			Items: []httpapi.TimelineItem{{
				Kind: "RSVP_CHANGED", Icon: "rsvp", Label: "RSVP changed to ATTENDING", Emphasis: true,
				OccurredAt: time.Date(2026, 6, 1, 14, 5, 0, 0, time.UTC),
			}},
		}}})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	require.NoError(t, runTimeline(cmd, opts(srv.URL), "g-1", 7))

	assert.Equal(t, "days=7", gotQuery)
	assert.Contains(t, out.String(), "Today (2 opens, 1 clicks)")
	assert.Contains(t, out.String(), "* 14:05")
	assert.Contains(t, out.String(), "RSVP changed to ATTENDING")
}

func TestTimeline_APIErrorIsDecoded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"guest not found"}}`))
	}))
	defer srv.Close()

	cmd, _ := testCmd()
	err := runTimeline(cmd, opts(srv.URL), "missing", 0)

	var ae *apiError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusNotFound, ae.Status)
	assert.Equal(t, "NOT_FOUND", ae.Code)
}

func TestInvitesSend_RequiresExactlyOneSelector(t *testing.T) {
	t.Parallel()
	cmd, _ := testCmd()
	require.Error(t, runInvitesSend(cmd, opts("http://127.0.0.1:1"), nil, false, ""))
	require.Error(t, runInvitesSend(cmd, opts("http://127.0.0.1:1"), []string{"g-1"}, true, ""))
}

func TestInvitesSend_SendsKeyAndReportsFailures(t *testing.T) {
	t.Parallel()

	var got httpapi.InviteRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/invites", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reason := "no email address"
		_ = json.NewEncoder(w).Encode(httpapi.DeliveryReport{
			Sent: 1, Skipped: 1,
			Deliveries: []httpapi.Delivery{
				{GuestId: "g-1", Status: "SENT"},
				{GuestId: "g-2", Status: "SKIPPED", Reason: &reason},
			},
		})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	require.NoError(t, runInvitesSend(cmd, opts(srv.URL), nil, true, "k-123"))

	assert.True(t, got.AllPending)
	assert.Equal(t, "k-123", gotKey)
	assert.Contains(t, out.String(), "sent 1, skipped 1, failed 0 (key k-123)")
	assert.Contains(t, out.String(), "g-2 SKIPPED no email address")
	assert.NotContains(t, out.String(), "g-1 SENT")
}

func TestClient_AuthPrecedence(t *testing.T) {
	t.Parallel()

	var auth, subject string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		subject = r.Header.Get("X-Debug-Subject")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	o := &globalOpts{apiURL: srv.URL + "/", token: "tok", user: "u", password: "p", subject: "s", timeout: time.Second}
	require.NoError(t, o.client().get(context.Background(), "/admin/summary", nil))
	assert.Equal(t, "Bearer tok", auth)
	assert.Empty(t, subject)

	o.token = ""
	require.NoError(t, o.client().get(context.Background(), "/admin/summary", nil))
	assert.True(t, strings.HasPrefix(auth, "Basic "))
}

func TestSummary_Prints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(httpapi.SummaryResponse{Total: 10, Attending: 6, ExpectedHeadcount: 8, Groups: 3})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	require.NoError(t, runSummary(cmd, opts(srv.URL)))
	assert.Contains(t, out.String(), "guests:      10 (3 groups)")
	assert.Contains(t, out.String(), "headcount:   8")
}

func TestDevIssuer_TokensVerify(t *testing.T) {
	t.Parallel()

	iss, err := newDevIssuer("kid-1", "http://issuer.test", "wedding-rsvp", time.Minute)
	require.NoError(t, err)
	srv := httptest.NewServer(iss.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/token?sub=planner|1&email=Planner@Example.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	v := jwtverifier.New(config.JWTConfig{
		Issuer:                 "http://issuer.test",
		Audience:               "wedding-rsvp",
		JWKSURL:                srv.URL + "/.well-known/jwks.json",
		ClockSkew:              30 * time.Second,
		JWKSRefreshInterval:    time.Minute,
		JWKSMinRefreshInterval: time.Second,
		HTTPTimeout:            time.Second,
	})
	claims, err := v.VerifyClaims(context.Background(), body.Token)
	require.NoError(t, err)
	assert.Equal(t, "planner|1", claims.Subject)
	assert.Equal(t, "planner@example.com", claims.Email)
}

func TestDevIssuer_MissingSub(t *testing.T) {
	t.Parallel()

	iss, err := newDevIssuer("kid-1", "http://issuer.test", "aud", time.Minute)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	iss.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"import", "timeline", "invites", "summary", "dev-issuer"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
	send, _, err := root.Find([]string{"invites", "send"})
	require.NoError(t, err)
	assert.NotNil(t, send.Flags().Lookup("all-pending"))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
