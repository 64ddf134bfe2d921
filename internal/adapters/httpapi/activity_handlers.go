package httpapi

import "net/http"

func (s *Server) activityFeed(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	buckets, err := s.Activity.Feed(r.Context(), days)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineFromDomain(buckets))
}
