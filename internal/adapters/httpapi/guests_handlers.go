package httpapi

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

func (s *Server) listGuests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := guests.ListFilter{Query: q.Get("q")}
	if v := q.Get("groupId"); v != "" {
		id := domain.GroupID(v)
		f.GroupID = &id
	}
	if v := q.Get("ungrouped"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ungrouped must be a boolean", map[string]any{"field": "ungrouped"})
			return
		}
		f.Ungrouped = b
	}
	if v := q.Get("rsvp"); v != "" {
		st := domain.RSVPStatus(v)
		f.RSVP = &st
	}
	gs, err := s.Guests.ListGuests(r.Context(), f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]Guest, 0, len(gs))
	for _, g := range gs {
		out = append(out, guestFromDomain(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"guests": out})
}

func (s *Server) createGuest(w http.ResponseWriter, r *http.Request) {
	var req CreateGuestRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	in := guests.CreateGuestInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		PlusOnes:     req.PlusOnes,
		DietaryNotes: req.DietaryNotes,
		IsAdult:      req.IsAdult,
	}
	if req.GroupId != nil {
		id := domain.GroupID(*req.GroupId)
		in.GroupID = &id
	}
	if req.Rsvp != nil {
		st := domain.RSVPStatus(*req.Rsvp)
		in.RSVP = &st
	}
	g, err := s.Guests.CreateGuest(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"guest": guestFromDomain(g)})
}

func (s *Server) getGuest(w http.ResponseWriter, r *http.Request) {
	g, err := s.Guests.GetGuest(r.Context(), domain.GuestID(urlParam(r, "guestId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guest": guestFromDomain(g)})
}

func (s *Server) updateGuest(w http.ResponseWriter, r *http.Request) {
	var req UpdateGuestRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	in := guests.UpdateGuestInput{
		FirstName:    patchFromNullable(req.FirstName),
		LastName:     patchFromNullable(req.LastName),
		Email:        patchFromNullable(req.Email),
		Phone:        patchFromNullable(req.Phone),
		GroupID:      patchMap(req.GroupId, func(v string) domain.GroupID { return domain.GroupID(v) }),
		PlusOnes:     patchFromNullable(req.PlusOnes),
		DietaryNotes: patchFromNullable(req.DietaryNotes),
		IsAdult:      patchFromNullable(req.IsAdult),
		AccessCode:   patchFromNullable(req.AccessCode),
	}
	g, err := s.Guests.UpdateGuest(r.Context(), domain.GuestID(urlParam(r, "guestId")), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guest": guestFromDomain(g)})
}

func (s *Server) deleteGuest(w http.ResponseWriter, r *http.Request) {
	if err := s.Guests.DeleteGuest(r.Context(), domain.GuestID(urlParam(r, "guestId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setGuestRSVP(w http.ResponseWriter, r *http.Request) {
	var req SetRSVPRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	in := guests.RSVPInput{
		Status:       domain.RSVPStatus(req.Status),
		PlusOnes:     req.PlusOnes,
		DietaryNotes: patchFromNullable(req.DietaryNotes),
	}
	g, err := s.Guests.SetRSVP(r.Context(), domain.GuestID(urlParam(r, "guestId")), in, "admin:"+sub)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guest": guestFromDomain(g)})
}

func (s *Server) importGuests(w http.ResponseWriter, r *http.Request) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || (mt != "text/csv" && mt != "text/plain") {
		writeError(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "expected text/csv", nil)
		return
	}
	raw, err := readBody(w, r, maxCSVBody)
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
		return
	}
	res, err := s.Guests.ImportCSV(r.Context(), bytes.NewReader(raw))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := ImportResponse{
		Created: res.Created,
		Updated: res.Updated,
		Skipped: res.Skipped,
		Errors:  make([]ImportRowError, 0, len(res.Errors)),
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, ImportRowError{Row: e.Row, Message: e.Message})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) assignGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupAssignmentRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	ref := guests.GroupRef{Name: req.GroupName}
	if req.GroupId != nil {
		id := domain.GroupID(*req.GroupId)
		ref.ID = &id
	}
	res, err := s.Guests.BulkAssignGroup(r.Context(), guestIDs(req.GuestIds), ref)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupAssignmentFromResult(res))
}

func (s *Server) unassignGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupAssignmentRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	res, err := s.Guests.BulkUnassignGroup(r.Context(), guestIDs(req.GuestIds))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupAssignmentFromResult(res))
}

func (s *Server) guestTimeline(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	buckets, err := s.Activity.GuestTimeline(r.Context(), domain.GuestID(urlParam(r, "guestId")), days)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineFromDomain(buckets))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Guests.Summary(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryFromDomain(sum))
}

func groupAssignmentFromResult(res guests.BulkGroupResult) GroupAssignmentResponse {
	out := GroupAssignmentResponse{
		GroupCreated: res.GroupCreated,
		Changed:      idStrings(res.Changed),
		Unchanged:    idStrings(res.Unchanged),
		Unknown:      idStrings(res.Unknown),
	}
	if res.Group != nil {
		g := groupFromDomain(*res.Group)
		out.Group = &g
	}
	return out
}
