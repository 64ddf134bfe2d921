package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/observability"
)

// AccessLog records one line per request and feeds the HTTP metrics. The request-scoped
// logger (with request_id) is attached to the context for handlers.
func AccessLog(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := l.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			r = r.WithContext(rl.WithContext(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			dur := time.Since(start)
			observability.ObserveHTTP(route, r.Method, status, dur)

			ev := rl.Info()
			if status >= 500 {
				ev = rl.Error()
			}
			ev.Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Dur("duration", dur).
				Str("remote", remoteIP(r)).
				Msg("http_request")
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	// Unmatched paths (SPA fallback, 404s) collapse into one label.
	return "unmatched"
}

// remoteIP returns the client address. RealIP has already rewritten RemoteAddr from
// X-Forwarded-For / X-Real-IP when present.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
