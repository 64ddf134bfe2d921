// Package lodging manages where attending guests sleep: locations, the units inside
// them and guest assignments.
package lodging

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
)

// MaxUnitCapacity bounds a single unit's capacity.
const MaxUnitCapacity = 50

type Service struct {
	repo   lodgingrepo.Repository
	guests guestrepo.Repository
	rec    *activity.Recorder
	clk    clockport.Clock

	newID func() string
}

func NewService(repo lodgingrepo.Repository, guests guestrepo.Repository, rec *activity.Recorder, clk clockport.Clock) *Service {
	return &Service{
		repo:   repo,
		guests: guests,
		rec:    rec,
		clk:    clk,
		newID:  uuid.NewString,
	}
}

// --- locations ---

func (s *Service) ListLocations(ctx context.Context) ([]domain.LodgingLocation, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateLocation(ctx context.Context, in CreateLocationInput) (domain.LodgingLocation, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.LodgingLocation{}, apperr.Validation("name", "must be non-empty")
	}
	now := s.clk.Now()
	l := domain.LodgingLocation{
		ID:        domain.LodgingLocationID(s.newID()),
		Name:      name,
		Address:   trimOptional(in.Address),
		CheckIn:   in.CheckIn,
		CheckOut:  in.CheckOut,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateStay(l); err != nil {
		return domain.LodgingLocation{}, err
	}
	if err := s.repo.CreateLocation(ctx, l); err != nil {
		return domain.LodgingLocation{}, err
	}
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id domain.LodgingLocationID, in UpdateLocationInput) (domain.LodgingLocation, error) {
	l, err := s.getLocation(ctx, id)
	if err != nil {
		return domain.LodgingLocation{}, err
	}
	if in.Name.IsSpecified() {
		name := domain.NormalizeHumanName(in.Name.Value())
		if in.Name.IsNull() || name == "" {
			return domain.LodgingLocation{}, apperr.Validation("name", "must be non-empty")
		}
		l.Name = name
	}
	if in.Address.IsSpecified() {
		l.Address = trimOptional(patch.Apply(l.Address, in.Address))
	}
	l.CheckIn = patch.Apply(l.CheckIn, in.CheckIn)
	l.CheckOut = patch.Apply(l.CheckOut, in.CheckOut)
	if err := validateStay(l); err != nil {
		return domain.LodgingLocation{}, err
	}
	l.UpdatedAt = s.clk.Now()
	if err := s.repo.UpdateLocation(ctx, l); err != nil {
		return domain.LodgingLocation{}, mapError(err)
	}
	return l, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id domain.LodgingLocationID) error {
	return mapError(s.repo.DeleteLocation(ctx, id))
}

// --- units ---

// ListUnits returns the location's units with occupants joined in.
func (s *Service) ListUnits(ctx context.Context, location domain.LodgingLocationID) ([]domain.LodgingUnit, error) {
	if _, err := s.getLocation(ctx, location); err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnits(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return units, nil
	}
	occupants, err := s.occupants(ctx)
	if err != nil {
		return nil, err
	}
	for i := range units {
		units[i].Occupants = occupants[units[i].ID]
	}
	return units, nil
}

func (s *Service) GetUnit(ctx context.Context, id domain.LodgingUnitID) (domain.LodgingUnit, error) {
	u, err := s.getUnit(ctx, id)
	if err != nil {
		return domain.LodgingUnit{}, err
	}
	occupants, err := s.occupants(ctx)
	if err != nil {
		return domain.LodgingUnit{}, err
	}
	u.Occupants = occupants[u.ID]
	return u, nil
}

func (s *Service) CreateUnit(ctx context.Context, location domain.LodgingLocationID, in CreateUnitInput) (domain.LodgingUnit, error) {
	if _, err := s.getLocation(ctx, location); err != nil {
		return domain.LodgingUnit{}, err
	}
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.LodgingUnit{}, apperr.Validation("name", "must be non-empty")
	}
	if err := validateCapacity(in.Capacity); err != nil {
		return domain.LodgingUnit{}, err
	}
	now := s.clk.Now()
	u := domain.LodgingUnit{
		ID:         domain.LodgingUnitID(s.newID()),
		LocationID: location,
		Name:       name,
		Capacity:   in.Capacity,
		Notes:      trimOptional(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		return domain.LodgingUnit{}, mapError(err)
	}
	return u, nil
}

// UpdateUnit refuses to shrink capacity below current occupancy.
func (s *Service) UpdateUnit(ctx context.Context, id domain.LodgingUnitID, in UpdateUnitInput) (domain.LodgingUnit, error) {
	u, err := s.GetUnit(ctx, id)
	if err != nil {
		return domain.LodgingUnit{}, err
	}
	if in.Name.IsSpecified() {
		name := domain.NormalizeHumanName(in.Name.Value())
		if in.Name.IsNull() || name == "" {
			return domain.LodgingUnit{}, apperr.Validation("name", "must be non-empty")
		}
		u.Name = name
	}
	if in.Capacity.IsSpecified() {
		if in.Capacity.IsNull() {
			return domain.LodgingUnit{}, apperr.Validation("capacity", "must not be null")
		}
		if err := validateCapacity(in.Capacity.Value()); err != nil {
			return domain.LodgingUnit{}, err
		}
		if in.Capacity.Value() < len(u.Occupants) {
			return domain.LodgingUnit{}, &apperr.Error{
				Status:  409,
				Code:    "UNIT_OVER_CAPACITY",
				Message: "Capacity is below the number of assigned guests.",
				Details: map[string]any{"occupants": len(u.Occupants)},
			}
		}
		u.Capacity = in.Capacity.Value()
	}
	if in.Notes.IsSpecified() {
		u.Notes = trimOptional(patch.Apply(u.Notes, in.Notes))
	}
	u.UpdatedAt = s.clk.Now()
	if err := s.repo.UpdateUnit(ctx, u); err != nil {
		return domain.LodgingUnit{}, mapError(err)
	}
	return u, nil
}

func (s *Service) DeleteUnit(ctx context.Context, id domain.LodgingUnitID) error {
	return mapError(s.repo.DeleteUnit(ctx, id))
}

// --- assignments ---

// AssignGuest places the guest in the unit, moving them out of any previous unit.
func (s *Service) AssignGuest(ctx context.Context, unitID domain.LodgingUnitID, guestID domain.GuestID) (domain.LodgingUnit, error) {
	g, err := s.guests.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			return domain.LodgingUnit{}, apperr.NotFound("GUEST_NOT_FOUND", "Guest not found.")
		}
		return domain.LodgingUnit{}, err
	}
	u, err := s.getUnit(ctx, unitID)
	if err != nil {
		return domain.LodgingUnit{}, err
	}
	prev, err := s.repo.GetAssignment(ctx, guestID)
	switch {
	case err == nil:
		if prev.UnitID == unitID {
			return s.GetUnit(ctx, unitID)
		}
	case errors.Is(err, lodgingrepo.ErrNotAssigned):
	default:
		return domain.LodgingUnit{}, err
	}

	if err := s.repo.Assign(ctx, unitID, guestID, s.clk.Now()); err != nil {
		if errors.Is(err, lodgingrepo.ErrUnitFull) {
			return domain.LodgingUnit{}, &apperr.Error{
				Status:  409,
				Code:    "UNIT_FULL",
				Message: "This unit is already at capacity.",
				Details: map[string]any{"capacity": u.Capacity},
			}
		}
		return domain.LodgingUnit{}, mapError(err)
	}

	payload := map[string]string{"unitId": string(u.ID), "unitName": u.Name}
	if prev.UnitID != "" {
		payload["fromUnitId"] = string(prev.UnitID)
	}
	s.rec.Best(ctx, g.ID, domain.ActivityLodgingAssigned, payload)
	return s.GetUnit(ctx, unitID)
}

func (s *Service) UnassignGuest(ctx context.Context, guestID domain.GuestID) error {
	a, err := s.repo.Unassign(ctx, guestID)
	if err != nil {
		if errors.Is(err, lodgingrepo.ErrNotAssigned) {
			return apperr.NotFound("ASSIGNMENT_NOT_FOUND", "Guest has no lodging assignment.")
		}
		return err
	}
	payload := map[string]string{"unitId": string(a.UnitID)}
	if u, err := s.repo.GetUnit(ctx, a.UnitID); err == nil {
		payload["unitName"] = u.Name
	}
	s.rec.Best(ctx, guestID, domain.ActivityLodgingUnassigned, payload)
	return nil
}

// --- helpers ---

// occupants groups every assignment by unit, resolving guest summaries.
func (s *Service) occupants(ctx context.Context) (map[domain.LodgingUnitID][]domain.GuestSummary, error) {
	as, err := s.repo.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.guests.List(ctx, guestrepo.Filter{})
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(all, func(g guestrepo.Guest) domain.GuestID { return g.ID })

	out := make(map[domain.LodgingUnitID][]domain.GuestSummary)
	for _, a := range as {
		g, ok := byID[a.GuestID]
		if !ok {
			continue
		}
		out[a.UnitID] = append(out[a.UnitID], g.Summary())
	}
	return out, nil
}

func (s *Service) getLocation(ctx context.Context, id domain.LodgingLocationID) (domain.LodgingLocation, error) {
	l, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return domain.LodgingLocation{}, mapError(err)
	}
	return l, nil
}

func (s *Service) getUnit(ctx context.Context, id domain.LodgingUnitID) (domain.LodgingUnit, error) {
	u, err := s.repo.GetUnit(ctx, id)
	if err != nil {
		return domain.LodgingUnit{}, mapError(err)
	}
	return u, nil
}

func validateStay(l domain.LodgingLocation) error {
	if l.CheckIn != nil && l.CheckOut != nil && l.CheckOut.Before(*l.CheckIn) {
		return apperr.Validation("checkOut", "must not be before checkIn")
	}
	return nil
}

func validateCapacity(n int) error {
	if n < 1 || n > MaxUnitCapacity {
		return apperr.Validation("capacity", "must be between 1 and "+strconv.Itoa(MaxUnitCapacity))
	}
	return nil
}

func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lodgingrepo.ErrLocationNotFound):
		return apperr.NotFound("LOCATION_NOT_FOUND", "Lodging location not found.")
	case errors.Is(err, lodgingrepo.ErrUnitNotFound):
		return apperr.NotFound("UNIT_NOT_FOUND", "Lodging unit not found.")
	case errors.Is(err, lodgingrepo.ErrLocationHasUnits):
		return apperr.Conflict("LOCATION_HAS_UNITS", "Remove the location's units first.")
	case errors.Is(err, lodgingrepo.ErrUnitOccupied):
		return apperr.Conflict("UNIT_OCCUPIED", "Unassign the unit's guests first.")
	}
	return err
}
