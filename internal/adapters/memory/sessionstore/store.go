package sessionstore

import (
	"context"
	"sync"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

// Store keeps portal sessions in process memory. Expired sessions are dropped lazily on Get.
type Store struct {
	clock clock.Clock

	mu sync.Mutex
	m  map[sessionstore.Token]sessionstore.Session
}

func NewStore(c clock.Clock) *Store {
	return &Store{
		clock: c,
		m:     make(map[sessionstore.Token]sessionstore.Session),
	}
}

func (s *Store) Put(ctx context.Context, sess sessionstore.Session) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.Token] = sess
	return nil
}

func (s *Store) Get(ctx context.Context, t sessionstore.Token) (sessionstore.Session, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[t]
	if !ok {
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		delete(s.m, t)
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, t sessionstore.Token) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, t)
	return nil
}
