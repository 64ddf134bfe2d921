package comms

import (
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
)

// InviteRequest selects invite recipients: explicit IDs, or every guest whose invite
// has not been sent yet.
type InviteRequest struct {
	GuestIDs   []domain.GuestID
	AllPending bool
}

type NudgeRequest struct {
	GuestIDs []domain.GuestID
	GroupID  *domain.GroupID
	Channel  messaging.Channel
	Subject  string
	// Body is a text/template rendered once per recipient with TemplateData.
	Body string
}

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "SENT"
	DeliverySkipped DeliveryStatus = "SKIPPED"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// Delivery is the outcome for a single recipient. Reason explains SKIPPED and FAILED.
type Delivery struct {
	GuestID domain.GuestID
	Status  DeliveryStatus
	Reason  string
}

type Report struct {
	Deliveries []Delivery
}

func (r Report) Count(s DeliveryStatus) int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == s {
			n++
		}
	}
	return n
}

// TemplateData is exposed to nudge bodies, e.g. "Hi {{.FirstName}}".
type TemplateData struct {
	FirstName  string
	LastName   string
	FullName   string
	AccessCode string
	RSVP       string
	PortalURL  string
}
