// Package sessionstore keeps guest portal sessions in Redis so they survive restarts and
// are shared between API replicas.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/observability"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

const keyPrefix = "rsvp:session:"

type Store struct {
	c     redis.UniversalClient
	clock clock.Clock
}

func New(addr, pass string, db int, c clock.Clock) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), c)
}

func NewWithClient(rc redis.UniversalClient, c clock.Clock) *Store {
	return &Store{c: rc, clock: c}
}

// Ping checks connectivity; used at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.c.Close()
}

type record struct {
	GuestID   string    `json:"guestId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Store) Put(ctx context.Context, sess sessionstore.Session) error {
	ttl := sess.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(record{
		GuestID:   string(sess.GuestID),
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	observability.ObserveSession("redis", "put")
	return s.c.Set(ctx, keyPrefix+string(sess.Token), b, ttl).Err()
}

func (s *Store) Get(ctx context.Context, t sessionstore.Token) (sessionstore.Session, error) {
	v, err := s.c.Get(ctx, keyPrefix+string(t)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveSession("redis", "miss")
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	if err != nil {
		return sessionstore.Session{}, err
	}
	var rec record
	if err := json.Unmarshal(v, &rec); err != nil {
		return sessionstore.Session{}, err
	}
	observability.ObserveSession("redis", "hit")
	return sessionstore.Session{
		Token:     t,
		GuestID:   domain.GuestID(rec.GuestID),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *Store) Delete(ctx context.Context, t sessionstore.Token) error {
	observability.ObserveSession("redis", "del")
	return s.c.Del(ctx, keyPrefix+string(t)).Err()
}
