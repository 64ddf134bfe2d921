package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/groups"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/lodging"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/webhooks"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
)

const (
	maxJSONBody = 1 << 20
	maxCSVBody  = 10 << 20
)

// Server holds the application services behind the HTTP handlers.
type Server struct {
	Guests   *guests.Service
	Groups   *groups.Service
	Lodging  *lodging.Service
	Comms    *comms.Service
	Activity *activity.Service
	Webhooks *webhooks.Service
	Portal   *portal.Service

	// Idem is optional; without it Idempotency-Key headers are ignored.
	Idem  idempotency.Store
	Clock clockport.Clock

	// WebhookToken must match the token query parameter of provider callbacks.
	// Empty disables the webhook endpoint.
	WebhookToken string
}

// readBody reads a size-limited request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errPayloadTooLarge
		}
		return nil, err
	}
	return raw, nil
}

var errPayloadTooLarge = errors.New("request body too large")

// decodeBody decodes a JSON body into dst and returns the raw bytes for hashing.
// It writes the error response itself and returns false when decoding fails.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, err := readBody(w, r, maxJSONBody)
	if err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "could not read request body", nil)
		return nil, false
	}
	if len(raw) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed JSON body", map[string]any{"error": err.Error()})
		return nil, false
	}
	return raw, true
}

// daysParam parses the optional ?days= window. Zero means the service default.
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "days must be an integer", map[string]any{"field": "days"})
		return 0, false
	}
	return n, true
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
