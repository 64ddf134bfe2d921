package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGrid sends email through the SendGrid v3 mail API. The guest ID travels as the
// guest_id custom argument so event webhooks can be attributed.
type SendGrid struct {
	c        *client
	baseURL  string
	apiKey   string
	from     string
	fromName string
}

type SendGridOptions struct {
	APIKey   string
	From     string
	FromName string
	// BaseURL overrides the API host (tests).
	BaseURL    string
	RPS        int
	HTTPClient *http.Client
}

func NewSendGrid(o SendGridOptions) *SendGrid {
	base := o.BaseURL
	if base == "" {
		base = sendGridBaseURL
	}
	return &SendGrid{
		c:        newClient("sendgrid", o.HTTPClient, o.RPS),
		baseURL:  strings.TrimRight(base, "/"),
		apiKey:   o.APIKey,
		from:     o.From,
		fromName: o.FromName,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To         []sgAddress       `json:"to"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	Categories       []string            `json:"categories,omitempty"`
}

func (s *SendGrid) SendEmail(ctx context.Context, m messaging.Email) error {
	p := sgPersonalization{To: []sgAddress{{Email: m.To, Name: m.ToName}}}
	if m.GuestID != "" {
		p.CustomArgs = map[string]string{"guest_id": m.GuestID}
	}
	mail := sgMail{
		Personalizations: []sgPersonalization{p},
		From:             sgAddress{Email: s.from, Name: s.fromName},
		Subject:          m.Subject,
	}
	// SendGrid requires text/plain before text/html.
	if m.Text != "" {
		mail.Content = append(mail.Content, sgContent{Type: "text/plain", Value: m.Text})
	}
	if m.HTML != "" {
		mail.Content = append(mail.Content, sgContent{Type: "text/html", Value: m.HTML})
	}
	if m.Category != "" {
		mail.Categories = []string{m.Category}
	}
	body, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	return s.c.do(ctx, "mail_send", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}
