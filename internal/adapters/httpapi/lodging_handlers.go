package httpapi

import (
	"net/http"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/lodging"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	ls, err := s.Lodging.ListLocations(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]LodgingLocation, 0, len(ls))
	for _, l := range ls {
		out = append(out, locationFromDomain(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	in := lodging.CreateLocationInput{Name: req.Name, Address: req.Address}
	if req.CheckIn != nil {
		t := req.CheckIn.Time
		in.CheckIn = &t
	}
	if req.CheckOut != nil {
		t := req.CheckOut.Time
		in.CheckOut = &t
	}
	l, err := s.Lodging.CreateLocation(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"location": locationFromDomain(l)})
}

func (s *Server) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req UpdateLocationRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	in := lodging.UpdateLocationInput{
		Name:     patchFromNullable(req.Name),
		Address:  patchFromNullable(req.Address),
		CheckIn:  patchMap(req.CheckIn, dateToTime),
		CheckOut: patchMap(req.CheckOut, dateToTime),
	}
	l, err := s.Lodging.UpdateLocation(r.Context(), domain.LodgingLocationID(urlParam(r, "locationId")), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": locationFromDomain(l)})
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.Lodging.DeleteLocation(r.Context(), domain.LodgingLocationID(urlParam(r, "locationId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	us, err := s.Lodging.ListUnits(r.Context(), domain.LodgingLocationID(urlParam(r, "locationId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": unitsFromDomain(us)})
}

func (s *Server) createUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	u, err := s.Lodging.CreateUnit(r.Context(), domain.LodgingLocationID(urlParam(r, "locationId")), lodging.CreateUnitInput{
		Name:     req.Name,
		Capacity: req.Capacity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"unit": unitFromDomain(u)})
}

func (s *Server) updateUnit(w http.ResponseWriter, r *http.Request) {
	var req UpdateUnitRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	u, err := s.Lodging.UpdateUnit(r.Context(), domain.LodgingUnitID(urlParam(r, "unitId")), lodging.UpdateUnitInput{
		Name:     patchFromNullable(req.Name),
		Capacity: patchFromNullable(req.Capacity),
		Notes:    patchFromNullable(req.Notes),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": unitFromDomain(u)})
}

func (s *Server) deleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := s.Lodging.DeleteUnit(r.Context(), domain.LodgingUnitID(urlParam(r, "unitId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) assignLodging(w http.ResponseWriter, r *http.Request) {
	u, err := s.Lodging.AssignGuest(r.Context(), domain.LodgingUnitID(urlParam(r, "unitId")), domain.GuestID(urlParam(r, "guestId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": unitFromDomain(u)})
}

func (s *Server) unassignLodging(w http.ResponseWriter, r *http.Request) {
	if err := s.Lodging.UnassignGuest(r.Context(), domain.GuestID(urlParam(r, "guestId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func unitsFromDomain(us []domain.LodgingUnit) []LodgingUnit {
	out := make([]LodgingUnit, 0, len(us))
	for _, u := range us {
		out = append(out, unitFromDomain(u))
	}
	return out
}
