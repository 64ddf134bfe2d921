package lodgingrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
)

// Repo is an in-memory implementation of lodgingrepo.Repository.
// It is safe for concurrent use; Assign checks capacity and writes under one lock.
type Repo struct {
	mu sync.RWMutex

	locations   map[domain.LodgingLocationID]domain.LodgingLocation
	units       map[domain.LodgingUnitID]domain.LodgingUnit
	assignments map[domain.GuestID]domain.LodgingAssignment
}

func NewRepo() *Repo {
	return &Repo{
		locations:   make(map[domain.LodgingLocationID]domain.LodgingLocation),
		units:       make(map[domain.LodgingUnitID]domain.LodgingUnit),
		assignments: make(map[domain.GuestID]domain.LodgingAssignment),
	}
}

func (r *Repo) CreateLocation(ctx context.Context, l domain.LodgingLocation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[l.ID] = cloneLocation(l)
	return nil
}

func (r *Repo) UpdateLocation(ctx context.Context, l domain.LodgingLocation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locations[l.ID]; !ok {
		return lodgingrepo.ErrLocationNotFound
	}
	r.locations[l.ID] = cloneLocation(l)
	return nil
}

func (r *Repo) DeleteLocation(ctx context.Context, id domain.LodgingLocationID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locations[id]; !ok {
		return lodgingrepo.ErrLocationNotFound
	}
	for _, u := range r.units {
		if u.LocationID == id {
			return lodgingrepo.ErrLocationHasUnits
		}
	}
	delete(r.locations, id)
	return nil
}

func (r *Repo) GetLocation(ctx context.Context, id domain.LodgingLocationID) (domain.LodgingLocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return domain.LodgingLocation{}, lodgingrepo.ErrLocationNotFound
	}
	return cloneLocation(l), nil
}

func (r *Repo) ListLocations(ctx context.Context) ([]domain.LodgingLocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LodgingLocation, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, cloneLocation(l))
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByName(out[i].Name, string(out[i].ID), out[j].Name, string(out[j].ID))
	})
	return out, nil
}

func (r *Repo) CreateUnit(ctx context.Context, u domain.LodgingUnit) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locations[u.LocationID]; !ok {
		return lodgingrepo.ErrLocationNotFound
	}
	r.units[u.ID] = cloneUnit(u)
	return nil
}

func (r *Repo) UpdateUnit(ctx context.Context, u domain.LodgingUnit) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.units[u.ID]
	if !ok {
		return lodgingrepo.ErrUnitNotFound
	}
	// Units never move between locations.
	u.LocationID = existing.LocationID
	r.units[u.ID] = cloneUnit(u)
	return nil
}

func (r *Repo) DeleteUnit(ctx context.Context, id domain.LodgingUnitID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok {
		return lodgingrepo.ErrUnitNotFound
	}
	if r.occupancyLocked(id) > 0 {
		return lodgingrepo.ErrUnitOccupied
	}
	delete(r.units, id)
	return nil
}

func (r *Repo) GetUnit(ctx context.Context, id domain.LodgingUnitID) (domain.LodgingUnit, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	if !ok {
		return domain.LodgingUnit{}, lodgingrepo.ErrUnitNotFound
	}
	return cloneUnit(u), nil
}

func (r *Repo) ListUnits(ctx context.Context, location domain.LodgingLocationID) ([]domain.LodgingUnit, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.locations[location]; !ok {
		return nil, lodgingrepo.ErrLocationNotFound
	}
	out := make([]domain.LodgingUnit, 0)
	for _, u := range r.units {
		if u.LocationID == location {
			out = append(out, cloneUnit(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByName(out[i].Name, string(out[i].ID), out[j].Name, string(out[j].ID))
	})
	return out, nil
}

func (r *Repo) Assign(ctx context.Context, unit domain.LodgingUnitID, guest domain.GuestID, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[unit]
	if !ok {
		return lodgingrepo.ErrUnitNotFound
	}
	if cur, ok := r.assignments[guest]; ok && cur.UnitID == unit {
		return nil
	}
	if r.occupancyLocked(unit) >= u.Capacity {
		return lodgingrepo.ErrUnitFull
	}
	r.assignments[guest] = domain.LodgingAssignment{UnitID: unit, GuestID: guest, AssignedAt: at}
	return nil
}

func (r *Repo) Unassign(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[guest]
	if !ok {
		return domain.LodgingAssignment{}, lodgingrepo.ErrNotAssigned
	}
	delete(r.assignments, guest)
	return a, nil
}

func (r *Repo) GetAssignment(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[guest]
	if !ok {
		return domain.LodgingAssignment{}, lodgingrepo.ErrNotAssigned
	}
	return a, nil
}

func (r *Repo) ListAssignments(ctx context.Context) ([]domain.LodgingAssignment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LodgingAssignment, 0, len(r.assignments))
	for _, a := range r.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitID == out[j].UnitID {
			return out[i].GuestID < out[j].GuestID
		}
		return out[i].UnitID < out[j].UnitID
	})
	return out, nil
}

func (r *Repo) occupancyLocked(unit domain.LodgingUnitID) int {
	n := 0
	for _, a := range r.assignments {
		if a.UnitID == unit {
			n++
		}
	}
	return n
}

func lessByName(ni, idi, nj, idj string) bool {
	li, lj := strings.ToLower(ni), strings.ToLower(nj)
	if li == lj {
		return idi < idj
	}
	return li < lj
}

func cloneLocation(l domain.LodgingLocation) domain.LodgingLocation {
	out := l
	if l.Address != nil {
		v := *l.Address
		out.Address = &v
	}
	if l.CheckIn != nil {
		v := *l.CheckIn
		out.CheckIn = &v
	}
	if l.CheckOut != nil {
		v := *l.CheckOut
		out.CheckOut = &v
	}
	return out
}

func cloneUnit(u domain.LodgingUnit) domain.LodgingUnit {
	out := u
	out.Occupants = nil
	if u.Notes != nil {
		v := *u.Notes
		out.Notes = &v
	}
	return out
}
