package guests

import (
	"context"

	"github.com/samber/lo"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

// Summary aggregates dashboard counters across all guests.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	all, err := s.guests.List(ctx, guestrepo.Filter{})
	if err != nil {
		return Summary{}, err
	}
	assignments, err := s.lodging.ListAssignments(ctx)
	if err != nil {
		return Summary{}, err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	lodged := lo.SliceToMap(assignments, func(a domain.LodgingAssignment) (domain.GuestID, struct{}) {
		return a.GuestID, struct{}{}
	})

	sum := Summary{Total: len(all), Groups: len(groups)}
	for _, g := range all {
		switch g.RSVP {
		case domain.RSVPAttending:
			sum.Attending++
		case domain.RSVPDeclined:
			sum.Declined++
		default:
			sum.Pending++
		}
		switch g.InviteStatus {
		case domain.InviteSent:
			sum.InvitesSent++
		case domain.InviteRedeemed:
			// A redeemed invite was also sent.
			sum.InvitesSent++
			sum.InvitesRedeemed++
		}
		sum.ExpectedHeadcount += g.Headcount()
		if _, ok := lodged[g.ID]; !ok && g.RSVP != domain.RSVPDeclined {
			sum.WithoutLodging++
		}
	}
	return sum, nil
}
