package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

const (
	mailtrapSendURL    = "https://send.api.mailtrap.io"
	mailtrapSandboxURL = "https://sandbox.api.mailtrap.io"
)

// Mailtrap sends email through the Mailtrap sending API, or into a sandbox inbox when an
// inbox ID is configured (staging).
type Mailtrap struct {
	c        *client
	url      string
	token    string
	from     string
	fromName string
}

type MailtrapOptions struct {
	APIToken string
	InboxID  string
	From     string
	FromName string
	// BaseURL overrides the API host (tests).
	BaseURL    string
	RPS        int
	HTTPClient *http.Client
}

func NewMailtrap(o MailtrapOptions) *Mailtrap {
	base := o.BaseURL
	path := "/api/send"
	if o.InboxID != "" {
		if base == "" {
			base = mailtrapSandboxURL
		}
		path = fmt.Sprintf("/api/send/%s", o.InboxID)
	}
	if base == "" {
		base = mailtrapSendURL
	}
	return &Mailtrap{
		c:        newClient("mailtrap", o.HTTPClient, o.RPS),
		url:      strings.TrimRight(base, "/") + path,
		token:    o.APIToken,
		from:     o.From,
		fromName: o.FromName,
	}
}

type mtAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mtMail struct {
	From            mtAddress         `json:"from"`
	To              []mtAddress       `json:"to"`
	Subject         string            `json:"subject"`
	Text            string            `json:"text,omitempty"`
	HTML            string            `json:"html,omitempty"`
	Category        string            `json:"category,omitempty"`
	CustomVariables map[string]string `json:"custom_variables,omitempty"`
}

func (s *Mailtrap) SendEmail(ctx context.Context, m messaging.Email) error {
	mail := mtMail{
		From:     mtAddress{Email: s.from, Name: s.fromName},
		To:       []mtAddress{{Email: m.To, Name: m.ToName}},
		Subject:  m.Subject,
		Text:     m.Text,
		HTML:     m.HTML,
		Category: m.Category,
	}
	if m.GuestID != "" {
		mail.CustomVariables = map[string]string{"guest_id": m.GuestID}
	}
	body, err := json.Marshal(mail)
	if err != nil {
		return err
	}
	return s.c.do(ctx, "send", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}
