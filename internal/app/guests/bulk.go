package guests

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

// BulkAssignGroup moves every known guest in ids into the referenced group.
func (s *Service) BulkAssignGroup(ctx context.Context, ids []domain.GuestID, ref GroupRef) (BulkGroupResult, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return BulkGroupResult{}, apperr.Validation("guestIds", "must contain at least one ID")
	}
	grp, created, err := s.resolveGroupRef(ctx, ref)
	if err != nil {
		return BulkGroupResult{}, err
	}

	res, known, err := s.partition(ctx, ids, &grp.ID)
	if err != nil {
		return BulkGroupResult{}, err
	}
	res.Group = &grp
	res.GroupCreated = created

	if len(res.Changed) > 0 {
		if err := s.guests.SetGroup(ctx, res.Changed, &grp.ID); err != nil {
			return BulkGroupResult{}, err
		}
	}
	for _, id := range res.Changed {
		s.recordGroupChange(ctx, id, known[id].GroupID, &grp.ID, &grp)
	}
	return res, nil
}

// BulkUnassignGroup clears the group of every known guest in ids.
func (s *Service) BulkUnassignGroup(ctx context.Context, ids []domain.GuestID) (BulkGroupResult, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return BulkGroupResult{}, apperr.Validation("guestIds", "must contain at least one ID")
	}
	res, known, err := s.partition(ctx, ids, nil)
	if err != nil {
		return BulkGroupResult{}, err
	}
	if len(res.Changed) > 0 {
		if err := s.guests.SetGroup(ctx, res.Changed, nil); err != nil {
			return BulkGroupResult{}, err
		}
	}
	for _, id := range res.Changed {
		s.recordGroupChange(ctx, id, known[id].GroupID, nil, nil)
	}
	return res, nil
}

// partition splits ids into guests whose group would change, guests already in target, and unknown IDs.
func (s *Service) partition(ctx context.Context, ids []domain.GuestID, target *domain.GroupID) (BulkGroupResult, map[domain.GuestID]domain.Guest, error) {
	var res BulkGroupResult
	known := make(map[domain.GuestID]domain.Guest, len(ids))
	for _, id := range ids {
		g, err := s.guests.GetByID(ctx, id)
		if errors.Is(err, guestrepo.ErrNotFound) {
			res.Unknown = append(res.Unknown, id)
			continue
		}
		if err != nil {
			return BulkGroupResult{}, nil, err
		}
		known[id] = g.Guest
		if sameGroup(g.GroupID, target) {
			res.Unchanged = append(res.Unchanged, id)
		} else {
			res.Changed = append(res.Changed, id)
		}
	}
	return res, known, nil
}

func (s *Service) resolveGroupRef(ctx context.Context, ref GroupRef) (domain.Group, bool, error) {
	switch {
	case ref.ID != nil && ref.Name != "":
		return domain.Group{}, false, apperr.Validation("group", "provide either id or name, not both")
	case ref.ID != nil:
		g, err := s.groups.GetByID(ctx, *ref.ID)
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, false, apperr.NotFound("GROUP_NOT_FOUND", "Group not found.")
		}
		return g, false, err
	default:
		return s.findOrCreateGroup(ctx, ref.Name)
	}
}

// findOrCreateGroup resolves name by canonical key, creating the group when none matches.
func (s *Service) findOrCreateGroup(ctx context.Context, name string) (domain.Group, bool, error) {
	name = domain.NormalizeHumanName(name)
	key := domain.CanonicalGroupKey(name)
	if key == "" {
		return domain.Group{}, false, apperr.Validation("group", "name must be non-empty")
	}
	g, err := s.groups.GetByCanonicalKey(ctx, key)
	if err == nil {
		return g, false, nil
	}
	if !errors.Is(err, grouprepo.ErrNotFound) {
		return domain.Group{}, false, err
	}

	now := s.clk.Now()
	g = domain.Group{
		ID:           s.newGroupID(),
		Name:         name,
		CanonicalKey: key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		// Lost a race with a concurrent create; use the winner.
		if errors.Is(err, grouprepo.ErrAlreadyExists) {
			existing, gerr := s.groups.GetByCanonicalKey(ctx, key)
			return existing, false, gerr
		}
		return domain.Group{}, false, err
	}
	return g, true, nil
}
