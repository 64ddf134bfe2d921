package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
)

func newInvitesCmd(o *globalOpts) *cobra.Command {
	invites := &cobra.Command{
		Use:   "invites",
		Short: "Send portal invitations",
	}

	var (
		allPending bool
		key        string
	)
	send := &cobra.Command{
		Use:   "send [guestId...]",
		Short: "Email invitations to the given guests or to everyone not yet invited",
		Long: `Send invitation emails. Either pass guest IDs or --all-pending.

Requests carry an Idempotency-Key; rerunning with the same --idempotency-key
replays the first result instead of emailing guests twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvitesSend(cmd, o, args, allPending, key)
		},
	}
	send.Flags().BoolVar(&allPending, "all-pending", false, "invite every guest whose invite has not been sent")
	send.Flags().StringVar(&key, "idempotency-key", "", "idempotency key (random when empty)")

	invites.AddCommand(send)
	return invites
}

func runInvitesSend(cmd *cobra.Command, o *globalOpts, ids []string, allPending bool, key string) error {
	if allPending == (len(ids) > 0) {
		return errors.New("pass guest IDs or --all-pending, not both")
	}
	if key == "" {
		key = uuid.NewString()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rep httpapi.DeliveryReport
	err := o.client().postJSON(ctx, "/admin/invites",
		httpapi.InviteRequest{GuestIds: ids, AllPending: allPending},
		map[string]string{"Idempotency-Key": key},
		&rep)
	if err != nil {
		return err
	}

	printf(cmd, "sent %d, skipped %d, failed %d (key %s)\n", rep.Sent, rep.Skipped, rep.Failed, key)
	for _, d := range rep.Deliveries {
		if d.Status == string(comms.DeliverySent) {
			continue
		}
		reason := ""
		if d.Reason != nil {
			reason = *d.Reason
		}
		printf(cmd, "  %s %s %s\n", d.GuestId, d.Status, reason)
	}
	return nil
}
