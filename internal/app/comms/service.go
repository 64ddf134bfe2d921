// Package comms sends invitations and reminder nudges to guests.
package comms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/secrets"
)

const (
	defaultWorkers = 4
	maxRecipients  = 1000
	maxBodyLen     = 5000
)

type Options struct {
	// PortalBaseURL prefixes invite links, e.g. https://rsvp.example.com.
	PortalBaseURL string
	// Workers bounds concurrent provider calls per send.
	Workers int
	// SMS is optional; SMS nudges are skipped when nil.
	SMS messaging.SMSSender
	// Observe is called once per delivery attempt with the channel and outcome (metrics).
	Observe func(channel, outcome string)
	Logger  zerolog.Logger
}

type Service struct {
	guests guestrepo.Repository
	groups grouprepo.Repository
	rec    *activity.Recorder
	clk    clockport.Clock
	email  messaging.EmailSender
	sms    messaging.SMSSender

	portalBaseURL string
	workers       int
	observe       func(channel, outcome string)
	log           zerolog.Logger

	newToken      func() (string, error)
	newAccessCode func() (string, error)
}

func NewService(guests guestrepo.Repository, groups grouprepo.Repository, rec *activity.Recorder, clk clockport.Clock, email messaging.EmailSender, o Options) *Service {
	workers := o.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	observe := o.Observe
	if observe == nil {
		observe = func(string, string) {}
	}
	return &Service{
		guests:        guests,
		groups:        groups,
		rec:           rec,
		clk:           clk,
		email:         email,
		sms:           o.SMS,
		portalBaseURL: strings.TrimRight(o.PortalBaseURL, "/"),
		workers:       workers,
		observe:       observe,
		log:           o.Logger,
		newToken:      secrets.NewToken,
		newAccessCode: secrets.NewAccessCode,
	}
}

var inviteTemplate = template.Must(template.New("invite").Parse(`Hi {{.FirstName}},

You're invited! Open your personal link to RSVP:

{{.Link}}

Or sign in at {{.PortalURL}} with your email and access code {{.AccessCode}}.
`))

type inviteData struct {
	TemplateData
	Link string
}

// SendInvites emails a fresh one-time invite link to each selected guest. Only the
// token's hash is stored. Guests without an email are skipped. Per-guest failures,
// including storage failures after a send, are reported rather than returned.
func (s *Service) SendInvites(ctx context.Context, req InviteRequest) (Report, error) {
	targets, unknown, err := s.inviteTargets(ctx, req)
	if err != nil {
		return Report{}, err
	}

	deliveries := make([]Delivery, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, guest := range targets {
		g.Go(func() error {
			deliveries[i] = s.invite(gctx, guest)
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range unknown {
		deliveries = append(deliveries, Delivery{GuestID: id, Status: DeliverySkipped, Reason: "guest not found"})
	}
	return Report{Deliveries: deliveries}, nil
}

// invite delivers to one guest. The guest row read before sending may be stale by the
// time the provider answers, so only the invite columns are written back.
func (s *Service) invite(ctx context.Context, guest guestrepo.Guest) Delivery {
	channel := string(messaging.ChannelEmail)
	failed := func(reason string) Delivery {
		s.observe(channel, "failed")
		return Delivery{GuestID: guest.ID, Status: DeliveryFailed, Reason: reason}
	}
	if guest.Email == nil {
		s.observe(channel, "skipped")
		return Delivery{GuestID: guest.ID, Status: DeliverySkipped, Reason: "no email address"}
	}

	token, err := s.newToken()
	if err != nil {
		return failed("generate token: " + err.Error())
	}
	if guest.AccessCode == "" {
		code, err := s.newAccessCode()
		if err != nil {
			return failed("generate access code: " + err.Error())
		}
		guest.AccessCode = code
	}

	var body strings.Builder
	if err := inviteTemplate.Execute(&body, inviteData{
		TemplateData: s.templateData(guest.Guest),
		Link:         s.portalBaseURL + "/invite/" + token,
	}); err != nil {
		return failed("render invite: " + err.Error())
	}

	err = s.email.SendEmail(ctx, messaging.Email{
		To:       *guest.Email,
		ToName:   guest.FullName(),
		Subject:  "You're invited",
		Text:     body.String(),
		GuestID:  string(guest.ID),
		Category: "invite",
	})
	if err != nil {
		s.log.Warn().Err(err).Str("guest_id", string(guest.ID)).Msg("invite delivery failed")
		return failed(err.Error())
	}

	_, err = s.guests.MarkInviteSent(ctx, guest.ID, secrets.HashToken(token), guest.AccessCode, s.clk.Now())
	switch {
	case errors.Is(err, guestrepo.ErrNotFound):
		s.observe(channel, "skipped")
		return Delivery{GuestID: guest.ID, Status: DeliverySkipped, Reason: "guest deleted during send"}
	case err != nil:
		// The email went out but its link will not redeem; resending issues a new token.
		s.log.Error().Err(err).Str("guest_id", string(guest.ID)).Msg("invite sent but not stored")
		return failed("email sent but invite could not be saved; resend: " + err.Error())
	}
	s.observe(channel, "sent")
	s.rec.Best(ctx, guest.ID, domain.ActivityInviteSent, map[string]string{"email": *guest.Email})
	return Delivery{GuestID: guest.ID, Status: DeliverySent}
}

func (s *Service) inviteTargets(ctx context.Context, req InviteRequest) ([]guestrepo.Guest, []domain.GuestID, error) {
	if req.AllPending {
		if len(req.GuestIDs) > 0 {
			return nil, nil, apperr.Validation("guestIds", "must be empty when allPending is set")
		}
		all, err := s.guests.List(ctx, guestrepo.Filter{})
		if err != nil {
			return nil, nil, err
		}
		return lo.Filter(all, func(g guestrepo.Guest, _ int) bool {
			return g.InviteStatus == domain.InviteNotSent
		}), nil, nil
	}
	ids := lo.Uniq(req.GuestIDs)
	if len(ids) == 0 {
		return nil, nil, apperr.Validation("guestIds", "must contain at least one ID")
	}
	if len(ids) > maxRecipients {
		return nil, nil, apperr.Validation("guestIds", fmt.Sprintf("at most %d recipients", maxRecipients))
	}
	return s.loadGuests(ctx, ids)
}

// RedeemInvite exchanges a one-time invite token for the guest it was issued to.
func (s *Service) RedeemInvite(ctx context.Context, token string) (domain.Guest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Guest{}, inviteInvalid()
	}
	g, err := s.guests.ConsumeInviteToken(ctx, secrets.HashToken(token), s.clk.Now())
	if err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			return domain.Guest{}, inviteInvalid()
		}
		return domain.Guest{}, err
	}
	s.rec.Best(ctx, g.ID, domain.ActivityInviteRedeemed, nil)
	return g.Guest, nil
}

// SendNudge renders Body per recipient and delivers over the requested channel.
// Per-recipient failures are reported, not returned.
func (s *Service) SendNudge(ctx context.Context, req NudgeRequest) (Report, error) {
	tmpl, err := s.validateNudge(req)
	if err != nil {
		return Report{}, err
	}
	recipients, unknown, err := s.nudgeRecipients(ctx, req)
	if err != nil {
		return Report{}, err
	}

	deliveries := make([]Delivery, len(recipients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, guest := range recipients {
		g.Go(func() error {
			deliveries[i] = s.nudge(gctx, req, tmpl, guest.Guest)
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range unknown {
		deliveries = append(deliveries, Delivery{GuestID: id, Status: DeliverySkipped, Reason: "guest not found"})
	}
	return Report{Deliveries: deliveries}, nil
}

func (s *Service) nudge(ctx context.Context, req NudgeRequest, tmpl *template.Template, g domain.Guest) Delivery {
	channel := string(req.Channel)
	skip := func(reason string) Delivery {
		s.observe(channel, "skipped")
		return Delivery{GuestID: g.ID, Status: DeliverySkipped, Reason: reason}
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, s.templateData(g)); err != nil {
		s.observe(channel, "failed")
		return Delivery{GuestID: g.ID, Status: DeliveryFailed, Reason: "render: " + err.Error()}
	}

	var err error
	switch req.Channel {
	case messaging.ChannelEmail:
		if g.Email == nil {
			return skip("no email address")
		}
		err = s.email.SendEmail(ctx, messaging.Email{
			To:       *g.Email,
			ToName:   g.FullName(),
			Subject:  req.Subject,
			Text:     body.String(),
			GuestID:  string(g.ID),
			Category: "nudge",
		})
	case messaging.ChannelSMS:
		if s.sms == nil {
			return skip("sms not configured")
		}
		if g.Phone == nil {
			return skip("no phone number")
		}
		err = s.sms.SendSMS(ctx, messaging.SMS{To: *g.Phone, Body: body.String(), GuestID: string(g.ID)})
	}
	if err != nil {
		s.observe(channel, "failed")
		s.log.Warn().Err(err).Str("guest_id", string(g.ID)).Str("channel", channel).Msg("nudge delivery failed")
		return Delivery{GuestID: g.ID, Status: DeliveryFailed, Reason: err.Error()}
	}

	s.observe(channel, "sent")
	payload := map[string]string{"channel": channel}
	if req.Subject != "" {
		payload["subject"] = req.Subject
	}
	s.rec.Best(ctx, g.ID, domain.ActivityNudgeSent, payload)
	return Delivery{GuestID: g.ID, Status: DeliverySent}
}

func (s *Service) validateNudge(req NudgeRequest) (*template.Template, error) {
	switch req.Channel {
	case messaging.ChannelEmail:
		if strings.TrimSpace(req.Subject) == "" {
			return nil, apperr.Validation("subject", "required for email")
		}
	case messaging.ChannelSMS:
	default:
		return nil, apperr.Validation("channel", "must be EMAIL or SMS")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, apperr.Validation("body", "must be non-empty")
	}
	if len(req.Body) > maxBodyLen {
		return nil, apperr.Validation("body", fmt.Sprintf("must be at most %d characters", maxBodyLen))
	}
	tmpl, err := template.New("nudge").Option("missingkey=error").Parse(req.Body)
	if err != nil {
		return nil, apperr.Validation("body", "invalid template: "+err.Error())
	}
	// Surface unknown fields up front instead of failing every recipient.
	if err := tmpl.Execute(io.Discard, TemplateData{}); err != nil {
		return nil, apperr.Validation("body", "invalid template: "+err.Error())
	}
	return tmpl, nil
}

func (s *Service) nudgeRecipients(ctx context.Context, req NudgeRequest) ([]guestrepo.Guest, []domain.GuestID, error) {
	ids := lo.Uniq(req.GuestIDs)
	if req.GroupID != nil {
		if _, err := s.groups.GetByID(ctx, *req.GroupID); err != nil {
			if errors.Is(err, grouprepo.ErrNotFound) {
				return nil, nil, apperr.NotFound("GROUP_NOT_FOUND", "Group not found.")
			}
			return nil, nil, err
		}
		members, err := s.guests.List(ctx, guestrepo.Filter{GroupID: req.GroupID})
		if err != nil {
			return nil, nil, err
		}
		ids = lo.Uniq(append(ids, lo.Map(members, func(g guestrepo.Guest, _ int) domain.GuestID { return g.ID })...))
	}
	if len(ids) == 0 {
		return nil, nil, apperr.Validation("recipients", "provide guestIds or a groupId with members")
	}
	if len(ids) > maxRecipients {
		return nil, nil, apperr.Validation("recipients", fmt.Sprintf("at most %d recipients", maxRecipients))
	}
	return s.loadGuests(ctx, ids)
}

func (s *Service) loadGuests(ctx context.Context, ids []domain.GuestID) ([]guestrepo.Guest, []domain.GuestID, error) {
	var found []guestrepo.Guest
	var unknown []domain.GuestID
	for _, id := range ids {
		g, err := s.guests.GetByID(ctx, id)
		if errors.Is(err, guestrepo.ErrNotFound) {
			unknown = append(unknown, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		found = append(found, g)
	}
	return found, unknown, nil
}

func (s *Service) templateData(g domain.Guest) TemplateData {
	return TemplateData{
		FirstName:  g.FirstName,
		LastName:   g.LastName,
		FullName:   g.FullName(),
		AccessCode: g.AccessCode,
		RSVP:       string(g.RSVP),
		PortalURL:  s.portalBaseURL,
	}
}

func inviteInvalid() *apperr.Error {
	return apperr.Unauthorized("INVITE_INVALID", "This invite link is invalid or has already been used.")
}
