package activityrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
)

// Repo is an in-memory, append-only activity log.
type Repo struct {
	mu     sync.RWMutex
	events []domain.ActivityEvent
}

func NewRepo() *Repo {
	return &Repo{}
}

func (r *Repo) Append(ctx context.Context, e domain.ActivityEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, cloneEvent(e))
	return nil
}

func (r *Repo) List(ctx context.Context, q activityrepo.Query) ([]domain.ActivityEvent, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]domain.ActivityEvent, 0, len(r.events))
	for _, e := range r.events {
		if q.GuestID != nil && e.GuestID != *q.GuestID {
			continue
		}
		if !q.Since.IsZero() && e.OccurredAt.Before(q.Since) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func cloneEvent(e domain.ActivityEvent) domain.ActivityEvent {
	out := e
	if e.Payload != nil {
		out.Payload = make(map[string]string, len(e.Payload))
		for k, v := range e.Payload {
			out.Payload[k] = v
		}
	}
	return out
}
