package lodgingrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
)

// Repo is a Postgres implementation of lodgingrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var errNilPool = errors.New("nil postgres pool")

// --- locations ---

func (r *Repo) CreateLocation(ctx context.Context, l domain.LodgingLocation) error {
	if r.pool == nil {
		return errNilPool
	}
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid location id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lodging_locations (id, name, address, check_in, check_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, l.Name, l.Address, utcPtr(l.CheckIn), utcPtr(l.CheckOut), l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	return err
}

func (r *Repo) UpdateLocation(ctx context.Context, l domain.LodgingLocation) error {
	if r.pool == nil {
		return errNilPool
	}
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return lodgingrepo.ErrLocationNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE lodging_locations
		SET name = $2, address = $3, check_in = $4, check_out = $5, updated_at = $6
		WHERE id = $1
	`, id, l.Name, l.Address, utcPtr(l.CheckIn), utcPtr(l.CheckOut), l.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return lodgingrepo.ErrLocationNotFound
	}
	return nil
}

func (r *Repo) DeleteLocation(ctx context.Context, id domain.LodgingLocationID) error {
	if r.pool == nil {
		return errNilPool
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return lodgingrepo.ErrLocationNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM lodging_locations WHERE id = $1`, uid)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return lodgingrepo.ErrLocationHasUnits
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return lodgingrepo.ErrLocationNotFound
	}
	return nil
}

func (r *Repo) GetLocation(ctx context.Context, id domain.LodgingLocationID) (domain.LodgingLocation, error) {
	if r.pool == nil {
		return domain.LodgingLocation{}, errNilPool
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.LodgingLocation{}, lodgingrepo.ErrLocationNotFound
	}
	return scanLocation(r.pool.QueryRow(ctx, `
		SELECT id, name, address, check_in, check_out, created_at, updated_at
		FROM lodging_locations WHERE id = $1
	`, uid))
}

func (r *Repo) ListLocations(ctx context.Context) ([]domain.LodgingLocation, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, address, check_in, check_out, created_at, updated_at
		FROM lodging_locations
		ORDER BY lower(name) ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LodgingLocation, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- units ---

func (r *Repo) CreateUnit(ctx context.Context, u domain.LodgingUnit) error {
	if r.pool == nil {
		return errNilPool
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid unit id: %w", err)
	}
	loc, err := uuid.Parse(string(u.LocationID))
	if err != nil {
		return lodgingrepo.ErrLocationNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lodging_units (id, location_id, name, capacity, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, loc, u.Name, u.Capacity, u.Notes, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
		return lodgingrepo.ErrLocationNotFound
	}
	return err
}

func (r *Repo) UpdateUnit(ctx context.Context, u domain.LodgingUnit) error {
	if r.pool == nil {
		return errNilPool
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return lodgingrepo.ErrUnitNotFound
	}
	// location_id is immutable.
	ct, err := r.pool.Exec(ctx, `
		UPDATE lodging_units
		SET name = $2, capacity = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`, id, u.Name, u.Capacity, u.Notes, u.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return lodgingrepo.ErrUnitNotFound
	}
	return nil
}

func (r *Repo) DeleteUnit(ctx context.Context, id domain.LodgingUnitID) error {
	if r.pool == nil {
		return errNilPool
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return lodgingrepo.ErrUnitNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM lodging_units WHERE id = $1`, uid)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return lodgingrepo.ErrUnitOccupied
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return lodgingrepo.ErrUnitNotFound
	}
	return nil
}

func (r *Repo) GetUnit(ctx context.Context, id domain.LodgingUnitID) (domain.LodgingUnit, error) {
	if r.pool == nil {
		return domain.LodgingUnit{}, errNilPool
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.LodgingUnit{}, lodgingrepo.ErrUnitNotFound
	}
	return scanUnit(r.pool.QueryRow(ctx, `
		SELECT id, location_id, name, capacity, notes, created_at, updated_at
		FROM lodging_units WHERE id = $1
	`, uid))
}

func (r *Repo) ListUnits(ctx context.Context, location domain.LodgingLocationID) ([]domain.LodgingUnit, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	loc, err := uuid.Parse(string(location))
	if err != nil {
		return nil, lodgingrepo.ErrLocationNotFound
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lodging_locations WHERE id = $1)`, loc).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, lodgingrepo.ErrLocationNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, location_id, name, capacity, notes, created_at, updated_at
		FROM lodging_units
		WHERE location_id = $1
		ORDER BY lower(name) ASC, id ASC
	`, loc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LodgingUnit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- assignments ---

func (r *Repo) Assign(ctx context.Context, unit domain.LodgingUnitID, guest domain.GuestID, at time.Time) error {
	if r.pool == nil {
		return errNilPool
	}
	unitID, err := uuid.Parse(string(unit))
	if err != nil {
		return lodgingrepo.ErrUnitNotFound
	}
	guestID, err := uuid.Parse(string(guest))
	if err != nil {
		return fmt.Errorf("invalid guest id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the unit row so concurrent assignments into it serialize on the capacity check.
		var capacity int
		if err := tx.QueryRow(ctx, `SELECT capacity FROM lodging_units WHERE id = $1 FOR UPDATE`, unitID).Scan(&capacity); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return lodgingrepo.ErrUnitNotFound
			}
			return err
		}

		var current *uuid.UUID
		err := tx.QueryRow(ctx, `SELECT unit_id FROM lodging_assignments WHERE guest_id = $1`, guestID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if current != nil && *current == unitID {
			return nil
		}

		var occupied int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM lodging_assignments WHERE unit_id = $1`, unitID).Scan(&occupied); err != nil {
			return err
		}
		if occupied >= capacity {
			return lodgingrepo.ErrUnitFull
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO lodging_assignments (guest_id, unit_id, assigned_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (guest_id) DO UPDATE SET
				unit_id = EXCLUDED.unit_id,
				assigned_at = EXCLUDED.assigned_at
		`, guestID, unitID, at.UTC())
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return fmt.Errorf("assign unknown guest %s: %w", guest, err)
		}
		return err
	})
}

func (r *Repo) Unassign(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error) {
	if r.pool == nil {
		return domain.LodgingAssignment{}, errNilPool
	}
	guestID, err := uuid.Parse(string(guest))
	if err != nil {
		return domain.LodgingAssignment{}, lodgingrepo.ErrNotAssigned
	}
	return scanAssignment(r.pool.QueryRow(ctx, `
		DELETE FROM lodging_assignments
		WHERE guest_id = $1
		RETURNING unit_id, guest_id, assigned_at
	`, guestID))
}

func (r *Repo) GetAssignment(ctx context.Context, guest domain.GuestID) (domain.LodgingAssignment, error) {
	if r.pool == nil {
		return domain.LodgingAssignment{}, errNilPool
	}
	guestID, err := uuid.Parse(string(guest))
	if err != nil {
		return domain.LodgingAssignment{}, lodgingrepo.ErrNotAssigned
	}
	return scanAssignment(r.pool.QueryRow(ctx, `
		SELECT unit_id, guest_id, assigned_at
		FROM lodging_assignments WHERE guest_id = $1
	`, guestID))
}

func (r *Repo) ListAssignments(ctx context.Context) ([]domain.LodgingAssignment, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT unit_id, guest_id, assigned_at
		FROM lodging_assignments
		ORDER BY unit_id ASC, guest_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LodgingAssignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- helpers ---

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func scanLocation(row pgx.Row) (domain.LodgingLocation, error) {
	var (
		id        uuid.UUID
		l         domain.LodgingLocation
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &l.Name, &l.Address, &l.CheckIn, &l.CheckOut, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LodgingLocation{}, lodgingrepo.ErrLocationNotFound
		}
		return domain.LodgingLocation{}, err
	}
	l.ID = domain.LodgingLocationID(id.String())
	l.CheckIn = utcPtr(l.CheckIn)
	l.CheckOut = utcPtr(l.CheckOut)
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return l, nil
}

func scanUnit(row pgx.Row) (domain.LodgingUnit, error) {
	var (
		id        uuid.UUID
		loc       uuid.UUID
		u         domain.LodgingUnit
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &loc, &u.Name, &u.Capacity, &u.Notes, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LodgingUnit{}, lodgingrepo.ErrUnitNotFound
		}
		return domain.LodgingUnit{}, err
	}
	u.ID = domain.LodgingUnitID(id.String())
	u.LocationID = domain.LodgingLocationID(loc.String())
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return u, nil
}

func scanAssignment(row pgx.Row) (domain.LodgingAssignment, error) {
	var (
		unitID  uuid.UUID
		guestID uuid.UUID
		at      time.Time
	)
	if err := row.Scan(&unitID, &guestID, &at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LodgingAssignment{}, lodgingrepo.ErrNotAssigned
		}
		return domain.LodgingAssignment{}, err
	}
	return domain.LodgingAssignment{
		UnitID:     domain.LodgingUnitID(unitID.String()),
		GuestID:    domain.GuestID(guestID.String()),
		AssignedAt: at.UTC(),
	}, nil
}
