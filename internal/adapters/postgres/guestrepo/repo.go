package guestrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

// Repo is a Postgres implementation of guestrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const guestColumns = `
	g.id,
	g.first_name,
	g.last_name,
	g.email,
	g.phone,
	g.group_id,
	g.rsvp_status,
	g.plus_ones,
	g.dietary_notes,
	g.is_adult,
	g.invite_status,
	g.invite_sent_at,
	g.invite_token_hash,
	g.access_code,
	g.created_at,
	g.updated_at
`

func (r *Repo) Create(ctx context.Context, g guestrepo.Guest) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(g.ID))
	if err != nil {
		return fmt.Errorf("invalid guest id: %w", err)
	}
	groupID, err := parseGroupID(g.GroupID)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO guests (
			id,
			first_name,
			last_name,
			email,
			email_normalized,
			phone,
			group_id,
			rsvp_status,
			plus_ones,
			dietary_notes,
			is_adult,
			invite_status,
			invite_sent_at,
			invite_token_hash,
			access_code,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		id,
		g.FirstName,
		g.LastName,
		g.Email,
		normalizedEmail(g.Email),
		g.Phone,
		groupID,
		string(g.RSVP),
		g.PlusOnes,
		g.DietaryNotes,
		g.IsAdult,
		string(g.InviteStatus),
		utcPtr(g.InviteSentAt),
		nullIfEmpty(g.InviteTokenHash),
		g.AccessCode,
		g.CreatedAt.UTC(),
		g.UpdatedAt.UTC(),
	)
	return mapWriteError(err)
}

func (r *Repo) Update(ctx context.Context, g guestrepo.Guest) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(g.ID))
	if err != nil {
		return guestrepo.ErrNotFound
	}
	groupID, err := parseGroupID(g.GroupID)
	if err != nil {
		return err
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE guests
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    email_normalized = $5,
		    phone = $6,
		    group_id = $7,
		    rsvp_status = $8,
		    plus_ones = $9,
		    dietary_notes = $10,
		    is_adult = $11,
		    invite_status = $12,
		    invite_sent_at = $13,
		    invite_token_hash = $14,
		    access_code = $15,
		    updated_at = $16
		WHERE id = $1
	`,
		id,
		g.FirstName,
		g.LastName,
		g.Email,
		normalizedEmail(g.Email),
		g.Phone,
		groupID,
		string(g.RSVP),
		g.PlusOnes,
		g.DietaryNotes,
		g.IsAdult,
		string(g.InviteStatus),
		utcPtr(g.InviteSentAt),
		nullIfEmpty(g.InviteTokenHash),
		g.AccessCode,
		g.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return guestrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.GuestID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return guestrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return guestrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GuestID) (guestrepo.Guest, error) {
	if r.pool == nil {
		return guestrepo.Guest{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	return scanGuest(r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests g WHERE g.id = $1`, uid))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (guestrepo.Guest, error) {
	if r.pool == nil {
		return guestrepo.Guest{}, errors.New("nil postgres pool")
	}
	key := domain.NormalizeEmail(email)
	if key == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	return scanGuest(r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests g WHERE g.email_normalized = $1`, key))
}

func (r *Repo) GetByInviteTokenHash(ctx context.Context, hash string) (guestrepo.Guest, error) {
	if r.pool == nil {
		return guestrepo.Guest{}, errors.New("nil postgres pool")
	}
	if hash == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	return scanGuest(r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests g WHERE g.invite_token_hash = $1`, hash))
}

func (r *Repo) MarkInviteSent(ctx context.Context, id domain.GuestID, tokenHash, accessCode string, sentAt time.Time) (guestrepo.Guest, error) {
	if r.pool == nil {
		return guestrepo.Guest{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	g, err := scanGuest(r.pool.QueryRow(ctx, `
		UPDATE guests AS g
		SET invite_token_hash = $2,
		    invite_status = $3,
		    invite_sent_at = $4,
		    access_code = CASE WHEN g.access_code = '' THEN $5 ELSE g.access_code END,
		    updated_at = $4
		WHERE g.id = $1
		RETURNING `+guestColumns,
		uid,
		nullIfEmpty(tokenHash),
		string(domain.InviteSent),
		sentAt.UTC(),
		accessCode,
	))
	if err != nil && !errors.Is(err, guestrepo.ErrNotFound) {
		return guestrepo.Guest{}, mapWriteError(err)
	}
	return g, err
}

func (r *Repo) ConsumeInviteToken(ctx context.Context, hash string, now time.Time) (guestrepo.Guest, error) {
	if r.pool == nil {
		return guestrepo.Guest{}, errors.New("nil postgres pool")
	}
	if hash == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	// A concurrent consumer blocks on the row lock and then sees the cleared hash.
	return scanGuest(r.pool.QueryRow(ctx, `
		UPDATE guests AS g
		SET invite_token_hash = NULL,
		    invite_status = $2,
		    updated_at = $3
		WHERE g.invite_token_hash = $1
		RETURNING `+guestColumns,
		hash,
		string(domain.InviteRedeemed),
		now.UTC(),
	))
}

func (r *Repo) List(ctx context.Context, f guestrepo.Filter) ([]guestrepo.Guest, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + guestColumns + ` FROM guests g WHERE true`)
	args := make([]any, 0, 4)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.GroupID != nil:
		gid, err := uuid.Parse(string(*f.GroupID))
		if err != nil {
			return []guestrepo.Guest{}, nil
		}
		sb.WriteString(" AND g.group_id = " + arg(gid))
	case f.Ungrouped:
		sb.WriteString(" AND g.group_id IS NULL")
	}
	if f.RSVP != nil {
		sb.WriteString(" AND g.rsvp_status = " + arg(string(*f.RSVP)))
	}
	for _, tok := range strings.Fields(strings.ToLower(f.Query)) {
		// Match all tokens (AND), each against any of the name/email columns.
		p := arg("%" + escapeLike(tok) + "%")
		sb.WriteString(" AND (lower(g.first_name) LIKE " + p + " OR lower(g.last_name) LIKE " + p + " OR coalesce(g.email_normalized, '') LIKE " + p + ")")
	}
	sb.WriteString(" ORDER BY lower(g.last_name) ASC, lower(g.first_name) ASC, g.id ASC")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]guestrepo.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SetGroup(ctx context.Context, ids []domain.GuestID, group *domain.GroupID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	groupID, err := parseGroupID(group)
	if err != nil {
		return err
	}
	uids := make([]string, 0, len(ids))
	for _, id := range ids {
		if uid, err := uuid.Parse(string(id)); err == nil {
			uids = append(uids, uid.String())
		}
	}
	if len(uids) == 0 {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE guests
		SET group_id = $2, updated_at = now()
		WHERE id = ANY($1::uuid[])
	`, uids, groupID)
	return mapWriteError(err)
}

// --- helpers ---

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := postgres.AsPgError(err); ok {
		switch {
		case pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "guests_pkey":
			return guestrepo.ErrAlreadyExists
		case pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "guests_email_unique":
			return guestrepo.ErrEmailInUse
		case pe.Code == postgres.ForeignKeyViolationCode:
			return fmt.Errorf("guest references unknown group: %w", err)
		}
	}
	return err
}

func parseGroupID(id *domain.GroupID) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	uid, err := uuid.Parse(string(*id))
	if err != nil {
		return nil, fmt.Errorf("invalid group id: %w", err)
	}
	return &uid, nil
}

func normalizedEmail(email *string) *string {
	if email == nil {
		return nil
	}
	v := domain.NormalizeEmail(*email)
	if v == "" {
		return nil
	}
	return &v
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanGuest(row pgx.Row) (guestrepo.Guest, error) {
	var (
		id           uuid.UUID
		firstName    string
		lastName     string
		email        *string
		phone        *string
		groupID      *uuid.UUID
		rsvp         string
		plusOnes     int
		dietaryNotes *string
		isAdult      bool
		inviteStatus string
		inviteSentAt *time.Time
		tokenHash    *string
		accessCode   string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&id,
		&firstName,
		&lastName,
		&email,
		&phone,
		&groupID,
		&rsvp,
		&plusOnes,
		&dietaryNotes,
		&isAdult,
		&inviteStatus,
		&inviteSentAt,
		&tokenHash,
		&accessCode,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return guestrepo.Guest{}, guestrepo.ErrNotFound
		}
		return guestrepo.Guest{}, err
	}

	g := guestrepo.Guest{Guest: domain.Guest{
		ID:           domain.GuestID(id.String()),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        phone,
		RSVP:         domain.RSVPStatus(rsvp),
		PlusOnes:     plusOnes,
		DietaryNotes: dietaryNotes,
		IsAdult:      isAdult,
		InviteStatus: domain.InviteStatus(inviteStatus),
		InviteSentAt: utcPtr(inviteSentAt),
		AccessCode:   accessCode,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}}
	if groupID != nil {
		gid := domain.GroupID(groupID.String())
		g.GroupID = &gid
	}
	if tokenHash != nil {
		g.InviteTokenHash = *tokenHash
	}
	return g, nil
}
