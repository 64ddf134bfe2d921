package grouprepo

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
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
)

// Repo is a Postgres implementation of grouprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, g domain.Group) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(g.ID))
	if err != nil {
		return fmt.Errorf("invalid group id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO groups (id, name, canonical_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, g.Name, g.CanonicalKey, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if postgres.IsUniqueViolation(err, "") {
		return grouprepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) Update(ctx context.Context, g domain.Group) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(g.ID))
	if err != nil {
		return grouprepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE groups
		SET name = $2, canonical_key = $3, updated_at = $4
		WHERE id = $1
	`, id, g.Name, g.CanonicalKey, g.UpdatedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "groups_canonical_key_unique") {
			return grouprepo.ErrAlreadyExists
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return grouprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.GroupID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return grouprepo.ErrNotFound
	}
	// guests.group_id is ON DELETE SET NULL.
	ct, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return grouprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	if r.pool == nil {
		return domain.Group{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Group{}, grouprepo.ErrNotFound
	}
	return scanGroup(r.pool.QueryRow(ctx, `
		SELECT id, name, canonical_key, created_at, updated_at
		FROM groups WHERE id = $1
	`, uid))
}

func (r *Repo) GetByCanonicalKey(ctx context.Context, key string) (domain.Group, error) {
	if r.pool == nil {
		return domain.Group{}, errors.New("nil postgres pool")
	}
	return scanGroup(r.pool.QueryRow(ctx, `
		SELECT id, name, canonical_key, created_at, updated_at
		FROM groups WHERE canonical_key = $1
	`, key))
}

func (r *Repo) List(ctx context.Context) ([]domain.Group, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, canonical_key, created_at, updated_at
		FROM groups
		ORDER BY lower(name) ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
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

func scanGroup(row pgx.Row) (domain.Group, error) {
	var (
		id        uuid.UUID
		name      string
		key       string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &key, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Group{}, grouprepo.ErrNotFound
		}
		return domain.Group{}, err
	}
	return domain.Group{
		ID:           domain.GroupID(id.String()),
		Name:         name,
		CanonicalKey: key,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}
