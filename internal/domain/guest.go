package domain

import "time"

type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "PENDING"
	RSVPAttending RSVPStatus = "ATTENDING"
	RSVPDeclined  RSVPStatus = "DECLINED"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAttending, RSVPDeclined:
		return true
	}
	return false
}

type InviteStatus string

const (
	InviteNotSent  InviteStatus = "NOT_SENT"
	InviteSent     InviteStatus = "SENT"
	InviteRedeemed InviteStatus = "REDEEMED"
)

// MaxPlusOnes bounds how many additional attendees a single guest may bring.
const MaxPlusOnes = 5

// Guest is the domain representation of an invited person.
type Guest struct {
	ID GuestID

	FirstName string
	LastName  string
	Email     *string
	Phone     *string

	GroupID *GroupID

	RSVP         RSVPStatus
	PlusOnes     int
	DietaryNotes *string
	IsAdult      bool

	InviteStatus InviteStatus
	InviteSentAt *time.Time
	// AccessCode is the short code a guest types into the portal login form.
	AccessCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g Guest) FullName() string {
	return NormalizeHumanName(g.FirstName + " " + g.LastName)
}

// Headcount is the number of seats this guest accounts for when attending.
func (g Guest) Headcount() int {
	if g.RSVP != RSVPAttending {
		return 0
	}
	return 1 + g.PlusOnes
}

// GuestSummary is the slim projection used in household and occupant lists.
type GuestSummary struct {
	ID        GuestID
	FirstName string
	LastName  string
	RSVP      RSVPStatus
}

func (g Guest) Summary() GuestSummary {
	return GuestSummary{ID: g.ID, FirstName: g.FirstName, LastName: g.LastName, RSVP: g.RSVP}
}
