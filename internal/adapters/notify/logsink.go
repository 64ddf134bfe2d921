package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

// LogSink logs messages instead of delivering them. It is the default provider for local
// development and satisfies both sender ports.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l.With().Str("component", "notify.logsink").Logger()}
}

func (s *LogSink) SendEmail(ctx context.Context, m messaging.Email) error {
	s.log.Info().
		Str("to", m.To).
		Str("guest_id", m.GuestID).
		Str("subject", m.Subject).
		Str("category", m.Category).
		Str("text", m.Text).
		Msg("email (not delivered)")
	return ctx.Err()
}

func (s *LogSink) SendSMS(ctx context.Context, m messaging.SMS) error {
	s.log.Info().
		Str("to", m.To).
		Str("guest_id", m.GuestID).
		Str("body", m.Body).
		Msg("sms (not delivered)")
	return ctx.Err()
}
