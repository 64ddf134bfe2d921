package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityfeed"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
)

// Recorder persists activity and fans it out to the live feed.
type Recorder struct {
	repo activityrepo.Repository
	pub  activityfeed.Publisher
	clk  clockport.Clock
	log  zerolog.Logger

	newID   func() domain.ActivityEventID
	observe func(kind domain.ActivityKind)
}

type RecorderOption func(*Recorder)

// WithPublisher sends every recorded event to p after it is persisted.
func WithPublisher(p activityfeed.Publisher) RecorderOption {
	return func(r *Recorder) { r.pub = p }
}

// WithObserver is called once per recorded event (metrics).
func WithObserver(fn func(kind domain.ActivityKind)) RecorderOption {
	return func(r *Recorder) { r.observe = fn }
}

func WithLogger(l zerolog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = l }
}

func NewRecorder(repo activityrepo.Repository, clk clockport.Clock, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo: repo,
		clk:  clk,
		log:  zerolog.Nop(),
		newID: func() domain.ActivityEventID {
			return domain.ActivityEventID(uuid.NewString())
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record stores an event stamped with the current time.
func (r *Recorder) Record(ctx context.Context, guestID domain.GuestID, kind domain.ActivityKind, payload map[string]string) (domain.ActivityEvent, error) {
	return r.RecordAt(ctx, guestID, kind, r.clk.Now(), payload)
}

// RecordAt stores an event with an explicit timestamp (provider webhooks report their own).
func (r *Recorder) RecordAt(ctx context.Context, guestID domain.GuestID, kind domain.ActivityKind, at time.Time, payload map[string]string) (domain.ActivityEvent, error) {
	e := domain.ActivityEvent{
		ID:         r.newID(),
		GuestID:    guestID,
		Kind:       kind,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
	if err := r.repo.Append(ctx, e); err != nil {
		return domain.ActivityEvent{}, fmt.Errorf("record %s for guest %s: %w", kind, guestID, err)
	}
	if r.observe != nil {
		r.observe(kind)
	}
	if r.pub != nil {
		r.pub.Publish(e)
	}
	return e, nil
}

// Best records an event, logging failures instead of returning them.
func (r *Recorder) Best(ctx context.Context, guestID domain.GuestID, kind domain.ActivityKind, payload map[string]string) {
	if _, err := r.Record(ctx, guestID, kind, payload); err != nil {
		r.log.Error().Err(err).Str("guest_id", string(guestID)).Str("kind", string(kind)).Msg("record activity")
	}
}
