package httpapi

import (
	"net/http"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

func (s *Server) portalLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	res, err := s.Portal.Login(r.Context(), req.Email, req.AccessCode, remoteIP(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFromDomain(res))
}

func (s *Server) portalRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	res, err := s.Portal.RedeemInviteAndLogin(r.Context(), req.Token, remoteIP(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFromDomain(res))
}

func (s *Server) portalLogout(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(w, r)
	if !ok {
		return
	}
	if err := s.Portal.Logout(r.Context(), raw); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) portalMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	h, err := s.Portal.Me(r.Context(), sess.GuestID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := MeResponse{
		Guest:     portalGuestFromDomain(h.Guest),
		Household: make([]PortalGuest, 0, len(h.Members)),
	}
	if h.Group != nil {
		name := h.Group.Name
		out.GroupName = &name
	}
	for _, m := range h.Members {
		out.Household = append(out.Household, portalGuestFromDomain(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) portalRSVP(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	var req PortalRSVPRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	responses := make([]portal.Response, 0, len(req.Responses))
	for _, item := range req.Responses {
		responses = append(responses, portal.Response{
			GuestID:      domain.GuestID(item.GuestId),
			Status:       domain.RSVPStatus(item.Status),
			PlusOnes:     item.PlusOnes,
			DietaryNotes: patchFromNullable(item.DietaryNotes),
		})
	}
	gs, err := s.Portal.RespondRSVP(r.Context(), sess.GuestID, responses)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := PortalRSVPResponse{Guests: make([]PortalGuest, 0, len(gs))}
	for _, g := range gs {
		out.Guests = append(out.Guests, portalGuestFromDomain(g))
	}
	writeJSON(w, http.StatusOK, out)
}
