package activityrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
)

// Repo is a Postgres implementation of activityrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Append(ctx context.Context, e domain.ActivityEvent) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid event id: %w", err)
	}
	guestID, err := uuid.Parse(string(e.GuestID))
	if err != nil {
		return fmt.Errorf("invalid guest id: %w", err)
	}
	var payload map[string]string
	if len(e.Payload) > 0 {
		payload = e.Payload
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_events (id, guest_id, kind, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, id, guestID, string(e.Kind), e.OccurredAt.UTC(), payload)
	return err
}

func (r *Repo) List(ctx context.Context, q activityrepo.Query) ([]domain.ActivityEvent, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, guest_id, kind, occurred_at, payload
		FROM activity_events
		WHERE true
	`)
	args := make([]any, 0, 2)
	if q.GuestID != nil {
		gid, err := uuid.Parse(string(*q.GuestID))
		if err != nil {
			return []domain.ActivityEvent{}, nil
		}
		args = append(args, gid)
		sb.WriteString(fmt.Sprintf(" AND guest_id = $%d ", len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since.UTC())
		sb.WriteString(fmt.Sprintf(" AND occurred_at >= $%d ", len(args)))
	}
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC ")
	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d ", q.Limit))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ActivityEvent, 0)
	for rows.Next() {
		var (
			id         uuid.UUID
			guestID    uuid.UUID
			kind       string
			occurredAt time.Time
			payload    map[string]string
		)
		if err := rows.Scan(&id, &guestID, &kind, &occurredAt, &payload); err != nil {
			return nil, err
		}
		out = append(out, domain.ActivityEvent{
			ID:         domain.ActivityEventID(id.String()),
			GuestID:    domain.GuestID(guestID.String()),
			Kind:       domain.ActivityKind(kind),
			OccurredAt: occurredAt.UTC(),
			Payload:    payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
