package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// hashBody fingerprints a decoded request. Hashing the re-encoded struct rather than
// the raw bytes makes whitespace and key order irrelevant.
func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// idempotent runs fn at most once per (Idempotency-Key, admin subject, route, body):
//   - replay if same key+subject+route+bodyHash has a stored response
//   - reject with 409 if the key was first used with a different body
//
// Without a key header (or without a store) fn simply runs.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route string, req any, status int, fn func() (any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.Idem == nil {
		resp, err := fn()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, status, resp)
		return
	}
	if len(key) > 255 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Idempotency-Key too long", map[string]any{"field": idempotencyHeader})
		return
	}

	ctx := r.Context()
	bodyHash, err := hashBody(req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	sub, _ := SubjectFromContext(ctx)
	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: domain.SubjectID(sub),
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.Clock.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode == status && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := fn()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	_ = s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.Clock.Now().UTC(),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
