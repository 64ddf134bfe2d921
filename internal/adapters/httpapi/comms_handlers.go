package httpapi

import (
	"net/http"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

func (s *Server) sendInvites(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	s.idempotent(w, r, "/admin/invites", req, http.StatusOK, func() (any, error) {
		rep, err := s.Comms.SendInvites(r.Context(), comms.InviteRequest{
			GuestIDs:   guestIDs(req.GuestIds),
			AllPending: req.AllPending,
		})
		if err != nil {
			return nil, err
		}
		return reportFromDomain(rep), nil
	})
}

func (s *Server) sendNudge(w http.ResponseWriter, r *http.Request) {
	var req NudgeRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	s.idempotent(w, r, "/admin/nudges", req, http.StatusOK, func() (any, error) {
		in := comms.NudgeRequest{
			GuestIDs: guestIDs(req.GuestIds),
			Channel:  messaging.Channel(req.Channel),
			Subject:  req.Subject,
			Body:     req.Body,
		}
		if req.GroupId != nil {
			id := domain.GroupID(*req.GroupId)
			in.GroupID = &id
		}
		rep, err := s.Comms.SendNudge(r.Context(), in)
		if err != nil {
			return nil, err
		}
		return reportFromDomain(rep), nil
	})
}
