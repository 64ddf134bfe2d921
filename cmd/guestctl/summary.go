package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
)

func newSummaryCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print RSVP and lodging counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, o)
		},
	}
}

func runSummary(cmd *cobra.Command, o *globalOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var s httpapi.SummaryResponse
	if err := o.client().get(ctx, "/admin/summary", &s); err != nil {
		return err
	}
	printf(cmd, "guests:      %d (%d groups)\n", s.Total, s.Groups)
	printf(cmd, "attending:   %d\n", s.Attending)
	printf(cmd, "declined:    %d\n", s.Declined)
	printf(cmd, "pending:     %d\n", s.Pending)
	printf(cmd, "invited:     %d (%d redeemed)\n", s.InvitesSent, s.InvitesRedeemed)
	printf(cmd, "headcount:   %d\n", s.ExpectedHeadcount)
	printf(cmd, "no lodging:  %d\n", s.WithoutLodging)
	return nil
}
