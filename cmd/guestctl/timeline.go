package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
)

func newTimelineCmd(o *globalOpts) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "timeline <guestId>",
		Short: "Show a guest's activity grouped by day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(cmd, o, args[0], days)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "days of history (0 uses the server default)")
	return cmd
}

func runTimeline(cmd *cobra.Command, o *globalOpts, guestID string, days int) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := "/admin/guests/" + url.PathEscape(guestID) + "/timeline"
	if days > 0 {
		path += fmt.Sprintf("?days=%d", days)
	}

	var res httpapi.TimelineResponse
	if err := o.client().get(ctx, path, &res); err != nil {
		return err
	}
	if len(res.Days) == 0 {
		printf(cmd, "no activity\n")
		return nil
	}
	for _, d := range res.Days {
		printf(cmd, "%s (%d opens, %d clicks)\n", d.Label, d.Opens, d.Clicks)
		for _, it := range d.Items {
			mark := " "
			if it.Emphasis {
				mark = "*"
			}
			printf(cmd, "  %s %s %-8s %s\n", mark, it.OccurredAt.Format("15:04"), it.Icon, it.Label)
		}
	}
	return nil
}
