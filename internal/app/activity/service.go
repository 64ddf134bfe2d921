package activity

import (
	"context"
	"errors"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

const (
	DefaultDays = 30
	MaxDays     = 365

	// FeedLimit caps the global feed; the per-guest timeline is unbounded within its window.
	FeedLimit = 500
)

type Service struct {
	repo   activityrepo.Repository
	guests guestrepo.Repository
	clk    clockport.Clock
}

func NewService(repo activityrepo.Repository, guests guestrepo.Repository, clk clockport.Clock) *Service {
	return &Service{repo: repo, guests: guests, clk: clk}
}

// GuestTimeline returns one guest's activity for the last days (0 means DefaultDays).
func (s *Service) GuestTimeline(ctx context.Context, guestID domain.GuestID, days int) ([]DayBucket, error) {
	since, err := s.since(days)
	if err != nil {
		return nil, err
	}
	if _, err := s.guests.GetByID(ctx, guestID); err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			return nil, apperr.NotFound("GUEST_NOT_FOUND", "Guest not found.")
		}
		return nil, err
	}
	events, err := s.repo.List(ctx, activityrepo.Query{GuestID: &guestID, Since: since})
	if err != nil {
		return nil, err
	}
	return BuildTimeline(events, s.clk.Now()), nil
}

// Feed returns recent activity across all guests, newest first, bucketed by day.
func (s *Service) Feed(ctx context.Context, days int) ([]DayBucket, error) {
	since, err := s.since(days)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.List(ctx, activityrepo.Query{Since: since, Limit: FeedLimit})
	if err != nil {
		return nil, err
	}
	return BuildTimeline(events, s.clk.Now()), nil
}

// since returns the start of the UTC day days-1 days ago, so "7 days" covers today plus six
// full previous days.
func (s *Service) since(days int) (time.Time, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return time.Time{}, apperr.Validation("days", "must be between 1 and 365")
	}
	now := s.clk.Now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return startOfToday.AddDate(0, 0, -(days - 1)), nil
}
