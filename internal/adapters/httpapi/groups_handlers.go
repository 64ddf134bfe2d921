package httpapi

import (
	"net/http"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	gs, err := s.Groups.ListGroups(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]Group, 0, len(gs))
	for _, g := range gs {
		out = append(out, groupFromDomain(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupNameRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	g, err := s.Groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"group": groupFromDomain(g)})
}

func (s *Server) renameGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupNameRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	g, err := s.Groups.RenameGroup(r.Context(), domain.GroupID(urlParam(r, "groupId")), req.Name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": groupFromDomain(g)})
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.Groups.DeleteGroup(r.Context(), domain.GroupID(urlParam(r, "groupId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
