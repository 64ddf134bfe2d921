package httpapi

import (
	"net/http"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/webhooks"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/secrets"
)

func (s *Server) sendGridWebhook(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if s.WebhookToken == "" || !secrets.Equal(token, s.WebhookToken) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook token", nil)
		return
	}
	var events []webhooks.SendGridEvent
	if _, ok := decodeBody(w, r, &events); !ok {
		return
	}
	res, err := s.Webhooks.IngestSendGrid(r.Context(), events)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"recorded":  res.Recorded,
		"ignored":   res.Ignored,
		"unmatched": res.Unmatched,
	})
}
