package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// --- guests ---

type Guest struct {
	GuestId      string               `json:"guestId"`
	FirstName    string               `json:"firstName"`
	LastName     string               `json:"lastName"`
	Email        *openapi_types.Email `json:"email"`
	Phone        *string              `json:"phone"`
	GroupId      *string              `json:"groupId"`
	Rsvp         string               `json:"rsvp"`
	PlusOnes     int                  `json:"plusOnes"`
	DietaryNotes *string              `json:"dietaryNotes"`
	IsAdult      bool                 `json:"isAdult"`
	InviteStatus string               `json:"inviteStatus"`
	InviteSentAt *time.Time           `json:"inviteSentAt"`
	AccessCode   string               `json:"accessCode"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

type CreateGuestRequest struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	GroupId      *string `json:"groupId"`
	Rsvp         *string `json:"rsvp"`
	PlusOnes     int     `json:"plusOnes"`
	DietaryNotes *string `json:"dietaryNotes"`
	IsAdult      *bool   `json:"isAdult"`
}

type UpdateGuestRequest struct {
	FirstName    nullable.Nullable[string] `json:"firstName,omitempty"`
	LastName     nullable.Nullable[string] `json:"lastName,omitempty"`
	Email        nullable.Nullable[string] `json:"email,omitempty"`
	Phone        nullable.Nullable[string] `json:"phone,omitempty"`
	GroupId      nullable.Nullable[string] `json:"groupId,omitempty"`
	PlusOnes     nullable.Nullable[int]    `json:"plusOnes,omitempty"`
	DietaryNotes nullable.Nullable[string] `json:"dietaryNotes,omitempty"`
	IsAdult      nullable.Nullable[bool]   `json:"isAdult,omitempty"`
	AccessCode   nullable.Nullable[string] `json:"accessCode,omitempty"`
}

type SetRSVPRequest struct {
	Status       string                    `json:"status"`
	PlusOnes     *int                      `json:"plusOnes"`
	DietaryNotes nullable.Nullable[string] `json:"dietaryNotes,omitempty"`
}

type GroupAssignmentRequest struct {
	GuestIds  []string `json:"guestIds"`
	GroupId   *string  `json:"groupId"`
	GroupName string   `json:"groupName"`
}

type GroupAssignmentResponse struct {
	Group        *Group   `json:"group,omitempty"`
	GroupCreated bool     `json:"groupCreated"`
	Changed      []string `json:"changed"`
	Unchanged    []string `json:"unchanged"`
	Unknown      []string `json:"unknown"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResponse struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

type SummaryResponse struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Attending         int `json:"attending"`
	Declined          int `json:"declined"`
	InvitesSent       int `json:"invitesSent"`
	InvitesRedeemed   int `json:"invitesRedeemed"`
	ExpectedHeadcount int `json:"expectedHeadcount"`
	WithoutLodging    int `json:"withoutLodging"`
	Groups            int `json:"groups"`
}

// --- groups ---

type Group struct {
	GroupId     string    `json:"groupId"`
	Name        string    `json:"name"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GroupNameRequest struct {
	Name string `json:"name"`
}

// --- lodging ---

type LodgingLocation struct {
	LocationId string                                `json:"locationId"`
	Name       string                                `json:"name"`
	Address    *string                               `json:"address"`
	CheckIn    nullable.Nullable[openapi_types.Date] `json:"checkIn"`
	CheckOut   nullable.Nullable[openapi_types.Date] `json:"checkOut"`
}

type CreateLocationRequest struct {
	Name     string              `json:"name"`
	Address  *string             `json:"address"`
	CheckIn  *openapi_types.Date `json:"checkIn"`
	CheckOut *openapi_types.Date `json:"checkOut"`
}

type UpdateLocationRequest struct {
	Name     nullable.Nullable[string]             `json:"name,omitempty"`
	Address  nullable.Nullable[string]             `json:"address,omitempty"`
	CheckIn  nullable.Nullable[openapi_types.Date] `json:"checkIn,omitempty"`
	CheckOut nullable.Nullable[openapi_types.Date] `json:"checkOut,omitempty"`
}

type GuestSummary struct {
	GuestId   string `json:"guestId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Rsvp      string `json:"rsvp"`
}

type LodgingUnit struct {
	UnitId     string         `json:"unitId"`
	LocationId string         `json:"locationId"`
	Name       string         `json:"name"`
	Capacity   int            `json:"capacity"`
	Notes      *string        `json:"notes"`
	Occupants  []GuestSummary `json:"occupants"`
}

type CreateUnitRequest struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Notes    *string `json:"notes"`
}

type UpdateUnitRequest struct {
	Name     nullable.Nullable[string] `json:"name,omitempty"`
	Capacity nullable.Nullable[int]    `json:"capacity,omitempty"`
	Notes    nullable.Nullable[string] `json:"notes,omitempty"`
}

// --- comms ---

type InviteRequest struct {
	GuestIds   []string `json:"guestIds"`
	AllPending bool     `json:"allPending"`
}

type NudgeRequest struct {
	GuestIds []string `json:"guestIds"`
	GroupId  *string  `json:"groupId"`
	Channel  string   `json:"channel"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

type Delivery struct {
	GuestId string  `json:"guestId"`
	Status  string  `json:"status"`
	Reason  *string `json:"reason,omitempty"`
}

type DeliveryReport struct {
	Sent       int        `json:"sent"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Deliveries []Delivery `json:"deliveries"`
}

// --- activity ---

type TimelineItem struct {
	EventId    string            `json:"eventId"`
	GuestId    string            `json:"guestId"`
	Kind       string            `json:"kind"`
	OccurredAt time.Time         `json:"occurredAt"`
	Icon       string            `json:"icon"`
	Label      string            `json:"label"`
	Emphasis   bool              `json:"emphasis"`
	Payload    map[string]string `json:"payload,omitempty"`
}

type DayBucket struct {
	Day    string         `json:"day"`
	Label  string         `json:"label"`
	Opens  int            `json:"opens"`
	Clicks int            `json:"clicks"`
	Items  []TimelineItem `json:"items"`
}

type TimelineResponse struct {
	Days []DayBucket `json:"days"`
}

// --- portal ---

type LoginRequest struct {
	Email      string `json:"email"`
	AccessCode string `json:"accessCode"`
}

type RedeemRequest struct {
	Token string `json:"token"`
}

type PortalGuest struct {
	GuestId      string  `json:"guestId"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Rsvp         string  `json:"rsvp"`
	PlusOnes     int     `json:"plusOnes"`
	DietaryNotes *string `json:"dietaryNotes"`
	IsAdult      bool    `json:"isAdult"`
}

type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Guest     PortalGuest `json:"guest"`
}

type MeResponse struct {
	Guest     PortalGuest   `json:"guest"`
	GroupName *string       `json:"groupName"`
	Household []PortalGuest `json:"household"`
}

type RSVPResponseItem struct {
	GuestId      string                    `json:"guestId"`
	Status       string                    `json:"status"`
	PlusOnes     *int                      `json:"plusOnes"`
	DietaryNotes nullable.Nullable[string] `json:"dietaryNotes,omitempty"`
}

type PortalRSVPRequest struct {
	Responses []RSVPResponseItem `json:"responses"`
}

type PortalRSVPResponse struct {
	Guests []PortalGuest `json:"guests"`
}

// --- mappers ---

func guestFromDomain(g domain.Guest) Guest {
	out := Guest{
		GuestId:      string(g.ID),
		FirstName:    g.FirstName,
		LastName:     g.LastName,
		Phone:        g.Phone,
		Rsvp:         string(g.RSVP),
		PlusOnes:     g.PlusOnes,
		DietaryNotes: g.DietaryNotes,
		IsAdult:      g.IsAdult,
		InviteStatus: string(g.InviteStatus),
		InviteSentAt: g.InviteSentAt,
		AccessCode:   g.AccessCode,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	if g.Email != nil {
		e := openapi_types.Email(*g.Email)
		out.Email = &e
	}
	if g.GroupID != nil {
		id := string(*g.GroupID)
		out.GroupId = &id
	}
	return out
}

func portalGuestFromDomain(g domain.Guest) PortalGuest {
	return PortalGuest{
		GuestId:      string(g.ID),
		FirstName:    g.FirstName,
		LastName:     g.LastName,
		Rsvp:         string(g.RSVP),
		PlusOnes:     g.PlusOnes,
		DietaryNotes: g.DietaryNotes,
		IsAdult:      g.IsAdult,
	}
}

func groupFromDomain(g domain.Group) Group {
	return Group{
		GroupId:     string(g.ID),
		Name:        g.Name,
		MemberCount: g.MemberCount,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func locationFromDomain(l domain.LodgingLocation) LodgingLocation {
	return LodgingLocation{
		LocationId: string(l.ID),
		Name:       l.Name,
		Address:    l.Address,
		CheckIn:    nullableDate(l.CheckIn),
		CheckOut:   nullableDate(l.CheckOut),
	}
}

func unitFromDomain(u domain.LodgingUnit) LodgingUnit {
	occ := make([]GuestSummary, 0, len(u.Occupants))
	for _, o := range u.Occupants {
		occ = append(occ, GuestSummary{
			GuestId:   string(o.ID),
			FirstName: o.FirstName,
			LastName:  o.LastName,
			Rsvp:      string(o.RSVP),
		})
	}
	return LodgingUnit{
		UnitId:     string(u.ID),
		LocationId: string(u.LocationID),
		Name:       u.Name,
		Capacity:   u.Capacity,
		Notes:      u.Notes,
		Occupants:  occ,
	}
}

func reportFromDomain(r comms.Report) DeliveryReport {
	out := DeliveryReport{
		Sent:       r.Count(comms.DeliverySent),
		Skipped:    r.Count(comms.DeliverySkipped),
		Failed:     r.Count(comms.DeliveryFailed),
		Deliveries: make([]Delivery, 0, len(r.Deliveries)),
	}
	for _, d := range r.Deliveries {
		item := Delivery{GuestId: string(d.GuestID), Status: string(d.Status)}
		if d.Reason != "" {
			reason := d.Reason
			item.Reason = &reason
		}
		out.Deliveries = append(out.Deliveries, item)
	}
	return out
}

func timelineFromDomain(days []activity.DayBucket) TimelineResponse {
	out := TimelineResponse{Days: make([]DayBucket, 0, len(days))}
	for _, d := range days {
		b := DayBucket{Day: d.Key, Label: d.Label, Opens: d.Opens, Clicks: d.Clicks, Items: make([]TimelineItem, 0, len(d.Items))}
		for _, it := range d.Items {
			b.Items = append(b.Items, TimelineItem{
				EventId:    string(it.Event.ID),
				GuestId:    string(it.Event.GuestID),
				Kind:       string(it.Event.Kind),
				OccurredAt: it.Event.OccurredAt,
				Icon:       it.Icon,
				Label:      it.Label,
				Emphasis:   it.Emphasis,
				Payload:    it.Event.Payload,
			})
		}
		out.Days = append(out.Days, b)
	}
	return out
}

func summaryFromDomain(s guests.Summary) SummaryResponse {
	return SummaryResponse{
		Total:             s.Total,
		Pending:           s.Pending,
		Attending:         s.Attending,
		Declined:          s.Declined,
		InvitesSent:       s.InvitesSent,
		InvitesRedeemed:   s.InvitesRedeemed,
		ExpectedHeadcount: s.ExpectedHeadcount,
		WithoutLodging:    s.WithoutLodging,
		Groups:            s.Groups,
	}
}

func sessionFromDomain(r portal.LoginResult) SessionResponse {
	return SessionResponse{Token: r.Token, ExpiresAt: r.ExpiresAt, Guest: portalGuestFromDomain(r.Guest)}
}

func nullableDate(p *time.Time) nullable.Nullable[openapi_types.Date] {
	if p == nil {
		return nullable.NewNullNullable[openapi_types.Date]()
	}
	return nullable.NewNullableWithValue(openapi_types.Date{Time: *p})
}

// patchFromNullable converts a JSON tri-state field into an application patch field.
func patchFromNullable[T any](n nullable.Nullable[T]) patch.Field[T] {
	if !n.IsSpecified() {
		return patch.Unspecified[T]()
	}
	if n.IsNull() {
		return patch.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return patch.Null[T]()
	}
	return patch.Some(v)
}

// patchMap is patchFromNullable with a value conversion (string IDs, dates).
func patchMap[T, U any](n nullable.Nullable[T], conv func(T) U) patch.Field[U] {
	f := patchFromNullable(n)
	switch {
	case !f.IsSpecified():
		return patch.Unspecified[U]()
	case f.IsNull():
		return patch.Null[U]()
	}
	return patch.Some(conv(f.Value()))
}

func dateToTime(d openapi_types.Date) time.Time { return d.Time }

func guestIDs(ids []string) []domain.GuestID {
	out := make([]domain.GuestID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.GuestID(id))
	}
	return out
}

func idStrings[T ~string](ids []T) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
