package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	// AdminAuth guards /admin. Required.
	AdminAuth func(http.Handler) http.Handler
	Logger    zerolog.Logger

	// Metrics, LiveFeed and StaticDir are optional.
	Metrics   http.Handler
	LiveFeed  http.Handler
	StaticDir string

	// LoginLimiter throttles portal login and invite redemption per client IP.
	LoginLimiter *IPRateLimiter
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, o RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(o.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoint is used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if o.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.Metrics)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(o.AdminAuth)

		r.Get("/guests", s.listGuests)
		r.Post("/guests", s.createGuest)
		r.Post("/guests/import", s.importGuests)
		r.Post("/guests/group-assignments", s.assignGroup)
		r.Delete("/guests/group-assignments", s.unassignGroup)
		r.Get("/guests/{guestId}", s.getGuest)
		r.Patch("/guests/{guestId}", s.updateGuest)
		r.Delete("/guests/{guestId}", s.deleteGuest)
		r.Put("/guests/{guestId}/rsvp", s.setGuestRSVP)
		r.Get("/guests/{guestId}/timeline", s.guestTimeline)

		r.Get("/groups", s.listGroups)
		r.Post("/groups", s.createGroup)
		r.Patch("/groups/{groupId}", s.renameGroup)
		r.Delete("/groups/{groupId}", s.deleteGroup)

		r.Get("/lodging/locations", s.listLocations)
		r.Post("/lodging/locations", s.createLocation)
		r.Patch("/lodging/locations/{locationId}", s.updateLocation)
		r.Delete("/lodging/locations/{locationId}", s.deleteLocation)
		r.Get("/lodging/locations/{locationId}/units", s.listUnits)
		r.Post("/lodging/locations/{locationId}/units", s.createUnit)
		r.Patch("/lodging/units/{unitId}", s.updateUnit)
		r.Delete("/lodging/units/{unitId}", s.deleteUnit)
		r.Put("/lodging/units/{unitId}/guests/{guestId}", s.assignLodging)
		r.Delete("/lodging/assignments/{guestId}", s.unassignLodging)

		r.Post("/invites", s.sendInvites)
		r.Post("/nudges", s.sendNudge)

		r.Get("/activity", s.activityFeed)
		if o.LiveFeed != nil {
			r.Method(http.MethodGet, "/activity/stream", o.LiveFeed)
		}
		r.Get("/summary", s.summary)
	})

	r.Route("/portal", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if o.LoginLimiter != nil {
				r.Use(o.LoginLimiter.Middleware)
			}
			r.Post("/login", s.portalLogin)
			r.Post("/invites/redeem", s.portalRedeem)
		})
		r.Post("/logout", s.portalLogout)
		r.Group(func(r chi.Router) {
			r.Use(NewSessionMiddleware(s.Portal))
			r.Get("/me", s.portalMe)
			r.Put("/rsvp", s.portalRSVP)
		})
	})

	r.Post("/webhooks/email/sendgrid", s.sendGridWebhook)

	if o.StaticDir != "" {
		r.NotFound(spaHandler(o.StaticDir).ServeHTTP)
	} else {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
		})
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
