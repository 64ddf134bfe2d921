// Package webhooks turns email provider delivery events into guest activity.
package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

// SendGridEvent is one entry of SendGrid's event webhook payload. Custom arguments
// attached at send time (guest_id) arrive as top-level fields.
type SendGridEvent struct {
	Email     string `json:"email"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	EventID   string `json:"sg_event_id"`
	GuestID   string `json:"guest_id"`
	URL       string `json:"url"`
	Reason    string `json:"reason"`
}

type Result struct {
	Recorded  int
	Ignored   int
	Unmatched int
}

type Service struct {
	guests guestrepo.Repository
	rec    *activity.Recorder
	clk    clockport.Clock
}

func NewService(guests guestrepo.Repository, rec *activity.Recorder, clk clockport.Clock) *Service {
	return &Service{guests: guests, rec: rec, clk: clk}
}

var sendGridKinds = map[string]domain.ActivityKind{
	"open":    domain.ActivityEmailOpened,
	"click":   domain.ActivityEmailClicked,
	"bounce":  domain.ActivityEmailBounced,
	"dropped": domain.ActivityEmailBounced,
}

// IngestSendGrid records opens, clicks and bounces. Other event types are ignored, as are
// duplicate sg_event_ids within one delivery.
func (s *Service) IngestSendGrid(ctx context.Context, events []SendGridEvent) (Result, error) {
	var res Result
	seen := map[string]bool{}
	for _, e := range events {
		if e.EventID != "" {
			if seen[e.EventID] {
				continue
			}
			seen[e.EventID] = true
		}
		kind, ok := sendGridKinds[e.Event]
		if !ok {
			res.Ignored++
			continue
		}
		id, err := s.resolve(ctx, e)
		if err != nil {
			return res, err
		}
		if id == "" {
			res.Unmatched++
			continue
		}

		at := s.clk.Now()
		if e.Timestamp > 0 {
			at = time.Unix(e.Timestamp, 0)
		}
		payload := map[string]string{"provider": "sendgrid", "event": e.Event}
		if e.URL != "" {
			payload["url"] = e.URL
		}
		if e.Reason != "" {
			payload["reason"] = e.Reason
		}
		if _, err := s.rec.RecordAt(ctx, id, kind, at, payload); err != nil {
			return res, err
		}
		res.Recorded++
	}
	return res, nil
}

// resolve finds the guest by custom argument first, then by recipient email.
func (s *Service) resolve(ctx context.Context, e SendGridEvent) (domain.GuestID, error) {
	if e.GuestID != "" {
		g, err := s.guests.GetByID(ctx, domain.GuestID(e.GuestID))
		if err == nil {
			return g.ID, nil
		}
		if !errors.Is(err, guestrepo.ErrNotFound) {
			return "", err
		}
	}
	if e.Email == "" {
		return "", nil
	}
	g, err := s.guests.GetByEmail(ctx, domain.NormalizeEmail(e.Email))
	if errors.Is(err, guestrepo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return g.ID, nil
}
