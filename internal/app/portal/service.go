// Package portal implements the guest-facing side: access-code login, invite
// redemption, sessions and household RSVPs.
package portal

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/secrets"
)

// DefaultSessionTTL is how long a portal session stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

type Service struct {
	guests   guestrepo.Repository
	groups   grouprepo.Repository
	sessions sessionstore.Store
	rsvp     *guests.Service
	invites  *comms.Service
	rec      *activity.Recorder
	clk      clockport.Clock
	ttl      time.Duration

	newToken func() (string, error)
}

type Deps struct {
	Guests   guestrepo.Repository
	Groups   grouprepo.Repository
	Sessions sessionstore.Store
	RSVP     *guests.Service
	Invites  *comms.Service
	Recorder *activity.Recorder
	Clock    clockport.Clock
	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration
}

func NewService(d Deps) *Service {
	ttl := d.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		guests:   d.Guests,
		groups:   d.Groups,
		sessions: d.Sessions,
		rsvp:     d.RSVP,
		invites:  d.Invites,
		rec:      d.Recorder,
		clk:      d.Clock,
		ttl:      ttl,
		newToken: secrets.NewToken,
	}
}

// LoginResult carries the raw bearer token. Only its hash is stored.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Guest     domain.Guest
}

// Login checks an email and access code. Unknown emails and wrong codes produce the
// same error; a wrong code for a known guest is recorded as LOGIN_FAILED.
func (s *Service) Login(ctx context.Context, email, accessCode, clientIP string) (LoginResult, error) {
	email = domain.NormalizeEmail(email)
	code := secrets.NormalizeAccessCode(accessCode)
	if email == "" || code == "" {
		return LoginResult{}, invalidCredentials()
	}
	g, err := s.guests.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			// Burn a comparison so both failure paths cost about the same.
			secrets.Equal(code, "XXXXXX")
			return LoginResult{}, invalidCredentials()
		}
		return LoginResult{}, err
	}
	if g.AccessCode == "" || !secrets.Equal(code, g.AccessCode) {
		s.rec.Best(ctx, g.ID, domain.ActivityLoginFailed, ipPayload(clientIP))
		return LoginResult{}, invalidCredentials()
	}
	res, err := s.startSession(ctx, g.Guest)
	if err != nil {
		return LoginResult{}, err
	}
	s.rec.Best(ctx, g.ID, domain.ActivityLogin, ipPayload(clientIP))
	return res, nil
}

// RedeemInviteAndLogin consumes an invite token and starts a session for its guest.
func (s *Service) RedeemInviteAndLogin(ctx context.Context, token, clientIP string) (LoginResult, error) {
	g, err := s.invites.RedeemInvite(ctx, token)
	if err != nil {
		return LoginResult{}, err
	}
	res, err := s.startSession(ctx, g)
	if err != nil {
		return LoginResult{}, err
	}
	payload := ipPayload(clientIP)
	payload["via"] = "invite"
	s.rec.Best(ctx, g.ID, domain.ActivityLogin, payload)
	return res, nil
}

// Authenticate resolves a raw bearer token to its session.
func (s *Service) Authenticate(ctx context.Context, token string) (sessionstore.Session, error) {
	if token == "" {
		return sessionstore.Session{}, sessionInvalid()
	}
	sess, err := s.sessions.Get(ctx, hashed(token))
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return sessionstore.Session{}, sessionInvalid()
		}
		return sessionstore.Session{}, err
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sess.Token); err != nil {
		return err
	}
	s.rec.Best(ctx, sess.GuestID, domain.ActivityLogout, nil)
	return nil
}

// Household is what a signed-in guest sees: themselves, their group and its other members.
type Household struct {
	Guest   domain.Guest
	Group   *domain.Group
	Members []domain.Guest
}

func (s *Service) Me(ctx context.Context, guestID domain.GuestID) (Household, error) {
	g, err := s.guests.GetByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			// The guest was deleted under a live session.
			return Household{}, sessionInvalid()
		}
		return Household{}, err
	}
	h := Household{Guest: g.Guest}
	if g.GroupID == nil {
		return h, nil
	}
	grp, err := s.groups.GetByID(ctx, *g.GroupID)
	if err != nil && !errors.Is(err, grouprepo.ErrNotFound) {
		return Household{}, err
	}
	if err == nil {
		h.Group = &grp
	}
	members, err := s.guests.List(ctx, guestrepo.Filter{GroupID: g.GroupID})
	if err != nil {
		return Household{}, err
	}
	for _, m := range members {
		if m.ID != g.ID {
			h.Members = append(h.Members, m.Guest)
		}
	}
	if h.Group != nil {
		h.Group.MemberCount = len(members)
	}
	return h, nil
}

type Response struct {
	GuestID      domain.GuestID
	Status       domain.RSVPStatus
	PlusOnes     *int
	DietaryNotes patch.Field[string]
}

// RespondRSVP applies RSVP answers for the signed-in guest and their household.
// Every target is checked before any change is made.
func (s *Service) RespondRSVP(ctx context.Context, actor domain.GuestID, responses []Response) ([]domain.Guest, error) {
	if len(responses) == 0 {
		return nil, apperr.Validation("responses", "must contain at least one response")
	}
	dupes := lo.FindDuplicatesBy(responses, func(r Response) domain.GuestID { return r.GuestID })
	if len(dupes) > 0 {
		return nil, apperr.Validation("responses", "each guest may appear once")
	}
	h, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	allowed := map[domain.GuestID]bool{h.Guest.ID: true}
	for _, m := range h.Members {
		allowed[m.ID] = true
	}
	for _, r := range responses {
		if !allowed[r.GuestID] {
			return nil, &apperr.Error{
				Status:  403,
				Code:    "NOT_IN_HOUSEHOLD",
				Message: "You can only respond for yourself and your household.",
				Details: map[string]any{"guestId": string(r.GuestID)},
			}
		}
		if r.Status == domain.RSVPPending {
			return nil, apperr.Validation("status", "must be ATTENDING or DECLINED")
		}
	}

	out := make([]domain.Guest, 0, len(responses))
	for _, r := range responses {
		g, err := s.rsvp.SetRSVP(ctx, r.GuestID, guests.RSVPInput{
			Status:       r.Status,
			PlusOnes:     r.PlusOnes,
			DietaryNotes: r.DietaryNotes,
		}, "guest:"+string(actor))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Service) startSession(ctx context.Context, g domain.Guest) (LoginResult, error) {
	token, err := s.newToken()
	if err != nil {
		return LoginResult{}, err
	}
	now := s.clk.Now()
	sess := sessionstore.Session{
		Token:     hashed(token),
		GuestID:   g.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, Guest: g}, nil
}

func hashed(token string) sessionstore.Token {
	return sessionstore.Token(secrets.HashToken(token))
}

func ipPayload(ip string) map[string]string {
	p := map[string]string{}
	if ip != "" {
		p["ip"] = ip
	}
	return p
}

func invalidCredentials() *apperr.Error {
	return apperr.Unauthorized("INVALID_CREDENTIALS", "Email or access code is incorrect.")
}

func sessionInvalid() *apperr.Error {
	return apperr.Unauthorized("SESSION_INVALID", "Please sign in again.")
}
