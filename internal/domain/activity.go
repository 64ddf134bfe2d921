package domain

import "time"

type ActivityKind string

const (
	ActivityRSVPAccepted      ActivityKind = "RSVP_ACCEPTED"
	ActivityRSVPDeclined      ActivityKind = "RSVP_DECLINED"
	ActivityRSVPReset         ActivityKind = "RSVP_RESET"
	ActivityInviteSent        ActivityKind = "INVITE_SENT"
	ActivityInviteRedeemed    ActivityKind = "INVITE_REDEEMED"
	ActivityLogin             ActivityKind = "LOGIN"
	ActivityLoginFailed       ActivityKind = "LOGIN_FAILED"
	ActivityLogout            ActivityKind = "LOGOUT"
	ActivityGroupJoined       ActivityKind = "GROUP_JOINED"
	ActivityGroupLeft         ActivityKind = "GROUP_LEFT"
	ActivityLodgingAssigned   ActivityKind = "LODGING_ASSIGNED"
	ActivityLodgingUnassigned ActivityKind = "LODGING_UNASSIGNED"
	ActivityNudgeSent         ActivityKind = "NUDGE_SENT"
	ActivityEmailBounced      ActivityKind = "EMAIL_BOUNCED"

	// Telemetry kinds are high-volume and only ever surface as per-day counters.
	ActivityEmailOpened  ActivityKind = "EMAIL_OPENED"
	ActivityEmailClicked ActivityKind = "EMAIL_CLICKED"
)

// IsTelemetry reports whether k is counted per day instead of listed on a timeline.
func (k ActivityKind) IsTelemetry() bool {
	return k == ActivityEmailOpened || k == ActivityEmailClicked
}

// ActivityEvent is a single timestamped fact about a guest.
type ActivityEvent struct {
	ID         ActivityEventID
	GuestID    GuestID
	Kind       ActivityKind
	OccurredAt time.Time
	// Payload carries kind-specific details (group name, unit name, nudge subject, ...).
	Payload map[string]string
}

// ActivityKinds lists every kind the application records.
func ActivityKinds() []ActivityKind {
	return []ActivityKind{
		ActivityRSVPAccepted,
		ActivityRSVPDeclined,
		ActivityRSVPReset,
		ActivityInviteSent,
		ActivityInviteRedeemed,
		ActivityLogin,
		ActivityLoginFailed,
		ActivityLogout,
		ActivityGroupJoined,
		ActivityGroupLeft,
		ActivityLodgingAssigned,
		ActivityLodgingUnassigned,
		ActivityNudgeSent,
		ActivityEmailBounced,
		ActivityEmailOpened,
		ActivityEmailClicked,
	}
}
