package messaging

import "context"

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Email is a single outbound email. GuestID is forwarded to providers as a custom
// argument so delivery webhooks can be attributed back to the guest.
type Email struct {
	To       string
	ToName   string
	Subject  string
	Text     string
	HTML     string
	GuestID  string
	Category string
}

type SMS struct {
	To      string
	Body    string
	GuestID string
}

// EmailSender delivers email through a provider (SendGrid, Mailtrap, or a local log sink).
type EmailSender interface {
	SendEmail(ctx context.Context, m Email) error
}

// SMSSender delivers text messages (Twilio).
type SMSSender interface {
	SendSMS(ctx context.Context, m SMS) error
}
