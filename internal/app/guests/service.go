package guests

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/secrets"
)

type Service struct {
	guests  guestrepo.Repository
	groups  grouprepo.Repository
	lodging lodgingrepo.Repository
	rec     *activity.Recorder
	clk     clockport.Clock

	newGuestID    func() domain.GuestID
	newGroupID    func() domain.GroupID
	newAccessCode func() (string, error)

	// MaxImportRows bounds a single CSV import.
	MaxImportRows int
}

func NewService(guests guestrepo.Repository, groups grouprepo.Repository, lodging lodgingrepo.Repository, rec *activity.Recorder, clk clockport.Clock) *Service {
	return &Service{
		guests:  guests,
		groups:  groups,
		lodging: lodging,
		rec:     rec,
		clk:     clk,
		newGuestID: func() domain.GuestID {
			return domain.GuestID(uuid.NewString())
		},
		newGroupID: func() domain.GroupID {
			return domain.GroupID(uuid.NewString())
		},
		newAccessCode: secrets.NewAccessCode,
		MaxImportRows: 5000,
	}
}

func (s *Service) ListGuests(ctx context.Context, f ListFilter) ([]domain.Guest, error) {
	if f.RSVP != nil && !f.RSVP.Valid() {
		return nil, apperr.Validation("rsvp", "must be one of PENDING, ATTENDING, DECLINED")
	}
	gs, err := s.guests.List(ctx, guestrepo.Filter{
		GroupID:   f.GroupID,
		Ungrouped: f.Ungrouped,
		RSVP:      f.RSVP,
		Query:     strings.TrimSpace(f.Query),
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(gs, func(g guestrepo.Guest, _ int) domain.Guest { return g.Guest }), nil
}

func (s *Service) GetGuest(ctx context.Context, id domain.GuestID) (domain.Guest, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return domain.Guest{}, err
	}
	return g.Guest, nil
}

func (s *Service) CreateGuest(ctx context.Context, in CreateGuestInput) (domain.Guest, error) {
	first := domain.NormalizeHumanName(in.FirstName)
	if first == "" {
		return domain.Guest{}, apperr.Validation("firstName", "must be non-empty")
	}
	email, err := normalizeOptionalEmail(in.Email)
	if err != nil {
		return domain.Guest{}, err
	}
	if err := validatePlusOnes(in.PlusOnes); err != nil {
		return domain.Guest{}, err
	}
	rsvp := domain.RSVPPending
	if in.RSVP != nil {
		if !in.RSVP.Valid() {
			return domain.Guest{}, apperr.Validation("rsvp", "must be one of PENDING, ATTENDING, DECLINED")
		}
		rsvp = *in.RSVP
	}
	var group *domain.Group
	if in.GroupID != nil {
		g, err := s.requireGroup(ctx, *in.GroupID)
		if err != nil {
			return domain.Guest{}, err
		}
		group = &g
	}
	code, err := s.newAccessCode()
	if err != nil {
		return domain.Guest{}, err
	}

	now := s.clk.Now()
	g := guestrepo.Guest{Guest: domain.Guest{
		ID:           s.newGuestID(),
		FirstName:    first,
		LastName:     domain.NormalizeHumanName(in.LastName),
		Email:        email,
		Phone:        normalizeOptionalPhone(in.Phone),
		GroupID:      cloneGroupID(in.GroupID),
		RSVP:         rsvp,
		PlusOnes:     in.PlusOnes,
		DietaryNotes: trimOptional(in.DietaryNotes),
		IsAdult:      in.IsAdult == nil || *in.IsAdult,
		InviteStatus: domain.InviteNotSent,
		AccessCode:   code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	if err := s.guests.Create(ctx, g); err != nil {
		return domain.Guest{}, mapGuestWriteError(err)
	}
	if group != nil {
		s.rec.Best(ctx, g.ID, domain.ActivityGroupJoined, groupPayload(*group))
	}
	return g.Guest, nil
}

func (s *Service) UpdateGuest(ctx context.Context, id domain.GuestID, in UpdateGuestInput) (domain.Guest, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return domain.Guest{}, err
	}
	prevGroup := cloneGroupID(g.GroupID)

	if in.FirstName.IsSpecified() {
		if in.FirstName.IsNull() {
			return domain.Guest{}, apperr.Validation("firstName", "must not be null")
		}
		first := domain.NormalizeHumanName(in.FirstName.Value())
		if first == "" {
			return domain.Guest{}, apperr.Validation("firstName", "must be non-empty")
		}
		g.FirstName = first
	}
	if in.LastName.IsSpecified() {
		g.LastName = domain.NormalizeHumanName(in.LastName.Value())
	}
	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			g.Email = nil
		} else {
			v := in.Email.Value()
			email, err := normalizeOptionalEmail(&v)
			if err != nil {
				return domain.Guest{}, err
			}
			g.Email = email
		}
	}
	if in.Phone.IsSpecified() {
		if in.Phone.IsNull() {
			g.Phone = nil
		} else {
			v := in.Phone.Value()
			g.Phone = normalizeOptionalPhone(&v)
		}
	}
	var newGroup *domain.Group
	if in.GroupID.IsSpecified() {
		if in.GroupID.IsNull() {
			g.GroupID = nil
		} else {
			grp, err := s.requireGroup(ctx, in.GroupID.Value())
			if err != nil {
				return domain.Guest{}, err
			}
			newGroup = &grp
			g.GroupID = &grp.ID
		}
	}
	if in.PlusOnes.IsSpecified() {
		if in.PlusOnes.IsNull() {
			return domain.Guest{}, apperr.Validation("plusOnes", "must not be null")
		}
		if err := validatePlusOnes(in.PlusOnes.Value()); err != nil {
			return domain.Guest{}, err
		}
		g.PlusOnes = in.PlusOnes.Value()
	}
	if in.DietaryNotes.IsSpecified() {
		if in.DietaryNotes.IsNull() {
			g.DietaryNotes = nil
		} else {
			v := in.DietaryNotes.Value()
			g.DietaryNotes = trimOptional(&v)
		}
	}
	if in.IsAdult.IsSpecified() {
		if in.IsAdult.IsNull() {
			return domain.Guest{}, apperr.Validation("isAdult", "must not be null")
		}
		g.IsAdult = in.IsAdult.Value()
	}
	if in.AccessCode.IsSpecified() {
		if in.AccessCode.IsNull() {
			code, err := s.newAccessCode()
			if err != nil {
				return domain.Guest{}, err
			}
			g.AccessCode = code
		} else {
			code := secrets.NormalizeAccessCode(in.AccessCode.Value())
			if len(code) < 4 || len(code) > 32 {
				return domain.Guest{}, apperr.Validation("accessCode", "must be 4 to 32 characters")
			}
			g.AccessCode = code
		}
	}

	g.UpdatedAt = s.clk.Now()
	if err := s.guests.Update(ctx, g); err != nil {
		return domain.Guest{}, mapGuestWriteError(err)
	}
	s.recordGroupChange(ctx, g.ID, prevGroup, g.GroupID, newGroup)
	return g.Guest, nil
}

// DeleteGuest removes the guest and any lodging assignment. Activity history is kept.
func (s *Service) DeleteGuest(ctx context.Context, id domain.GuestID) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if _, err := s.lodging.Unassign(ctx, id); err != nil && !errors.Is(err, lodgingrepo.ErrNotAssigned) {
		return err
	}
	if err := s.guests.Delete(ctx, id); err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			return guestNotFound()
		}
		return err
	}
	return nil
}

// SetRSVP updates a guest's response. Activity is recorded only when the status changes;
// actor identifies who answered (admin subject or the responding guest).
func (s *Service) SetRSVP(ctx context.Context, id domain.GuestID, in RSVPInput, actor string) (domain.Guest, error) {
	if !in.Status.Valid() {
		return domain.Guest{}, apperr.Validation("status", "must be one of PENDING, ATTENDING, DECLINED")
	}
	g, err := s.get(ctx, id)
	if err != nil {
		return domain.Guest{}, err
	}
	prev := g.RSVP

	g.RSVP = in.Status
	if in.PlusOnes != nil {
		if err := validatePlusOnes(*in.PlusOnes); err != nil {
			return domain.Guest{}, err
		}
		g.PlusOnes = *in.PlusOnes
	}
	if in.Status == domain.RSVPDeclined {
		g.PlusOnes = 0
	}
	if in.DietaryNotes.IsSpecified() {
		if in.DietaryNotes.IsNull() {
			g.DietaryNotes = nil
		} else {
			v := in.DietaryNotes.Value()
			g.DietaryNotes = trimOptional(&v)
		}
	}
	g.UpdatedAt = s.clk.Now()
	if err := s.guests.Update(ctx, g); err != nil {
		return domain.Guest{}, mapGuestWriteError(err)
	}

	if prev != g.RSVP {
		kind := domain.ActivityRSVPReset
		switch g.RSVP {
		case domain.RSVPAttending:
			kind = domain.ActivityRSVPAccepted
		case domain.RSVPDeclined:
			kind = domain.ActivityRSVPDeclined
		}
		s.rec.Best(ctx, g.ID, kind, map[string]string{
			"actor":    actor,
			"from":     string(prev),
			"plusOnes": strconv.Itoa(g.PlusOnes),
		})
	}
	return g.Guest, nil
}

// --- helpers ---

func (s *Service) get(ctx context.Context, id domain.GuestID) (guestrepo.Guest, error) {
	g, err := s.guests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, guestrepo.ErrNotFound) {
			return guestrepo.Guest{}, guestNotFound()
		}
		return guestrepo.Guest{}, err
	}
	return g, nil
}

func (s *Service) requireGroup(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, apperr.Validation("groupId", "unknown group")
		}
		return domain.Group{}, err
	}
	return g, nil
}

// recordGroupChange records GROUP_LEFT / GROUP_JOINED when a guest's group changed.
// joined is the already-loaded new group, if any.
func (s *Service) recordGroupChange(ctx context.Context, guestID domain.GuestID, prev, next *domain.GroupID, joined *domain.Group) {
	if sameGroup(prev, next) {
		return
	}
	if prev != nil {
		s.rec.Best(ctx, guestID, domain.ActivityGroupLeft, map[string]string{"groupId": string(*prev)})
	}
	if next != nil {
		payload := map[string]string{"groupId": string(*next)}
		if joined != nil {
			payload = groupPayload(*joined)
		}
		s.rec.Best(ctx, guestID, domain.ActivityGroupJoined, payload)
	}
}

func groupPayload(g domain.Group) map[string]string {
	return map[string]string{"groupId": string(g.ID), "groupName": g.Name}
}

func sameGroup(a, b *domain.GroupID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func guestNotFound() *apperr.Error {
	return apperr.NotFound("GUEST_NOT_FOUND", "Guest not found.")
}

func mapGuestWriteError(err error) error {
	switch {
	case errors.Is(err, guestrepo.ErrEmailInUse):
		return &apperr.Error{
			Status:  409,
			Code:    "GUEST_EMAIL_IN_USE",
			Message: "Another guest already uses this email.",
			Details: map[string]any{"email": "already in use"},
		}
	case errors.Is(err, guestrepo.ErrNotFound):
		return guestNotFound()
	}
	return err
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("must be a valid email address")
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

// normalizeOptionalEmail treats blank as absent.
func normalizeOptionalEmail(p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	email := domain.NormalizeEmail(*p)
	if email == "" {
		return nil, nil
	}
	if err := validateEmail(email); err != nil {
		return nil, apperr.Validation("email", err.Error())
	}
	return &email, nil
}

func normalizeOptionalPhone(p *string) *string {
	if p == nil {
		return nil
	}
	v := domain.NormalizePhone(*p)
	if v == "" {
		return nil
	}
	return &v
}

func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func validatePlusOnes(n int) error {
	if n < 0 || n > domain.MaxPlusOnes {
		return apperr.Validation("plusOnes", "must be between 0 and "+strconv.Itoa(domain.MaxPlusOnes))
	}
	return nil
}

func cloneGroupID(p *domain.GroupID) *domain.GroupID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
