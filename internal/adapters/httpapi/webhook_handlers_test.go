package httpapi

import (
	"net/http"
	"testing"
)

func TestSendGridWebhook(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	g := api.createGuest(t, map[string]any{"firstName": "Ada", "email": "ada@example.com"})
	ts := api.clk.Now().Unix()

	events := []map[string]any{
		{"email": "ada@example.com", "event": "open", "timestamp": ts, "sg_event_id": "e1"},
		{"email": "other@example.com", "event": "click", "timestamp": ts, "sg_event_id": "e2", "guest_id": g.GuestId},
		{"email": "ada@example.com", "event": "delivered", "timestamp": ts, "sg_event_id": "e3"},
	}

	rec := api.do(t, call{method: http.MethodPost, path: "/webhooks/email/sendgrid?token=wrong", body: events})
	expectErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	rec = api.do(t, call{method: http.MethodPost, path: "/webhooks/email/sendgrid?token=" + testWebhookToken, body: events})
	expectStatus(t, rec, http.StatusOK)
	res := decodeJSON[map[string]int](t, rec)
	if res["recorded"] != 2 || res["ignored"] != 1 {
		t.Fatalf("result: %v", res)
	}

	rec = api.do(t, call{method: http.MethodGet, path: "/admin/activity?days=1"})
	expectStatus(t, rec, http.StatusOK)
	feed := decodeJSON[TimelineResponse](t, rec)
	if len(feed.Days) != 1 || feed.Days[0].Opens != 1 || feed.Days[0].Clicks != 1 || len(feed.Days[0].Items) != 0 {
		t.Fatalf("feed: %+v", feed)
	}
}
