package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

const twilioBaseURL = "https://api.twilio.com"

// Twilio sends SMS through the Twilio Messages resource.
type Twilio struct {
	c          *client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

type TwilioOptions struct {
	AccountSID string
	AuthToken  string
	From       string
	// BaseURL overrides the API host (tests).
	BaseURL    string
	RPS        int
	HTTPClient *http.Client
}

func NewTwilio(o TwilioOptions) *Twilio {
	base := o.BaseURL
	if base == "" {
		base = twilioBaseURL
	}
	return &Twilio{
		c:          newClient("twilio", o.HTTPClient, o.RPS),
		baseURL:    strings.TrimRight(base, "/"),
		accountSID: o.AccountSID,
		authToken:  o.AuthToken,
		from:       o.From,
	}
}

func (s *Twilio) SendSMS(ctx context.Context, m messaging.SMS) error {
	form := url.Values{}
	form.Set("To", m.To)
	form.Set("From", s.from)
	form.Set("Body", m.Body)
	endpoint := s.baseURL + "/2010-04-01/Accounts/" + url.PathEscape(s.accountSID) + "/Messages.json"

	return s.c.do(ctx, "messages", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}
