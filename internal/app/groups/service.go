// Package groups manages household groups. Membership itself lives on guests.
package groups

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

type Service struct {
	groups grouprepo.Repository
	guests guestrepo.Repository
	rec    *activity.Recorder
	clk    clockport.Clock

	newGroupID func() domain.GroupID
}

func NewService(groups grouprepo.Repository, guests guestrepo.Repository, rec *activity.Recorder, clk clockport.Clock) *Service {
	return &Service{
		groups: groups,
		guests: guests,
		rec:    rec,
		clk:    clk,
		newGroupID: func() domain.GroupID {
			return domain.GroupID(uuid.NewString())
		},
	}
}

// ListGroups returns all groups ordered by name, with member counts filled in.
func (s *Service) ListGroups(ctx context.Context) ([]domain.Group, error) {
	gs, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.guests.List(ctx, guestrepo.Filter{})
	if err != nil {
		return nil, err
	}
	counts := lo.CountValuesBy(
		lo.Filter(all, func(g guestrepo.Guest, _ int) bool { return g.GroupID != nil }),
		func(g guestrepo.Guest) domain.GroupID { return *g.GroupID },
	)
	for i := range gs {
		gs[i].MemberCount = counts[gs[i].ID]
	}
	return gs, nil
}

func (s *Service) GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	members, err := s.members(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	g.MemberCount = len(members)
	return g, nil
}

func (s *Service) CreateGroup(ctx context.Context, name string) (domain.Group, error) {
	name, key, err := validateName(name)
	if err != nil {
		return domain.Group{}, err
	}
	now := s.clk.Now()
	g := domain.Group{
		ID:           s.newGroupID(),
		Name:         name,
		CanonicalKey: key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return domain.Group{}, mapWriteError(err)
	}
	return g, nil
}

func (s *Service) RenameGroup(ctx context.Context, id domain.GroupID, name string) (domain.Group, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	name, key, err := validateName(name)
	if err != nil {
		return domain.Group{}, err
	}
	g.Name = name
	g.CanonicalKey = key
	g.UpdatedAt = s.clk.Now()
	if err := s.groups.Update(ctx, g); err != nil {
		return domain.Group{}, mapWriteError(err)
	}
	members, err := s.members(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	g.MemberCount = len(members)
	return g, nil
}

// DeleteGroup clears the group from its members, recording GROUP_LEFT for each, then removes it.
func (s *Service) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	g, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	members, err := s.members(ctx, id)
	if err != nil {
		return err
	}
	ids := lo.Map(members, func(m guestrepo.Guest, _ int) domain.GuestID { return m.ID })
	if len(ids) > 0 {
		if err := s.guests.SetGroup(ctx, ids, nil); err != nil {
			return err
		}
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return groupNotFound()
		}
		return err
	}
	for _, gid := range ids {
		s.rec.Best(ctx, gid, domain.ActivityGroupLeft, map[string]string{
			"groupId":   string(g.ID),
			"groupName": g.Name,
			"reason":    "group deleted",
		})
	}
	return nil
}

func (s *Service) get(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, groupNotFound()
		}
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Service) members(ctx context.Context, id domain.GroupID) ([]guestrepo.Guest, error) {
	return s.guests.List(ctx, guestrepo.Filter{GroupID: &id})
}

func validateName(raw string) (string, string, error) {
	name := domain.NormalizeHumanName(raw)
	if name == "" {
		return "", "", apperr.Validation("name", "must be non-empty")
	}
	if len(name) > 120 {
		return "", "", apperr.Validation("name", "must be at most 120 characters")
	}
	key := domain.CanonicalGroupKey(name)
	if key == "" {
		return "", "", apperr.Validation("name", "must contain more than articles")
	}
	return name, key, nil
}

func groupNotFound() *apperr.Error {
	return apperr.NotFound("GROUP_NOT_FOUND", "Group not found.")
}

func mapWriteError(err error) error {
	if errors.Is(err, grouprepo.ErrAlreadyExists) {
		return apperr.Conflict("GROUP_ALREADY_EXISTS", "A group with an equivalent name already exists.")
	}
	if errors.Is(err, grouprepo.ErrNotFound) {
		return groupNotFound()
	}
	return err
}
