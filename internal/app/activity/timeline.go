package activity

import (
	"sort"
	"strings"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

const (
	LabelToday     = "TODAY"
	LabelYesterday = "YESTERDAY"

	dayKeyLayout   = "2006-01-02"
	dayLabelLayout = "Mon, Jan 2, 2006"

	// FallbackIcon decorates kinds missing from the style table.
	FallbackIcon = "•"
)

// TimelineItem is a notable event decorated for display.
type TimelineItem struct {
	Event    domain.ActivityEvent
	Icon     string
	Label    string
	Emphasis bool
}

// DayBucket groups one UTC day of activity. Telemetry (opens, clicks) is only counted.
type DayBucket struct {
	Key    string
	Label  string
	Opens  int
	Clicks int
	Items  []TimelineItem
}

type kindStyle struct {
	icon     string
	label    string
	emphasis bool
}

var styles = map[domain.ActivityKind]kindStyle{
	domain.ActivityRSVPAccepted:      {icon: "✅", label: "RSVP'd yes", emphasis: true},
	domain.ActivityRSVPDeclined:      {icon: "❌", label: "Declined", emphasis: true},
	domain.ActivityRSVPReset:         {icon: "↺", label: "RSVP reset"},
	domain.ActivityInviteSent:        {icon: "✉️", label: "Invite sent"},
	domain.ActivityInviteRedeemed:    {icon: "🔓", label: "Opened invite link", emphasis: true},
	domain.ActivityLogin:             {icon: "🔑", label: "Logged in"},
	domain.ActivityLoginFailed:       {icon: "⚠️", label: "Failed login", emphasis: true},
	domain.ActivityLogout:            {icon: "🚪", label: "Logged out"},
	domain.ActivityGroupJoined:       {icon: "👪", label: "Joined household"},
	domain.ActivityGroupLeft:         {icon: "👤", label: "Left household"},
	domain.ActivityLodgingAssigned:   {icon: "🛏️", label: "Lodging assigned"},
	domain.ActivityLodgingUnassigned: {icon: "🧳", label: "Lodging removed"},
	domain.ActivityNudgeSent:         {icon: "📣", label: "Nudge sent"},
	domain.ActivityEmailBounced:      {icon: "⛔", label: "Email bounced", emphasis: true},
}

// Decorate returns the display item for e. Unknown kinds get the fallback icon and a label
// derived from the kind ("SEAT_CHANGED" -> "Seat changed").
func Decorate(e domain.ActivityEvent) TimelineItem {
	if st, ok := styles[e.Kind]; ok {
		return TimelineItem{Event: e, Icon: st.icon, Label: st.label, Emphasis: st.emphasis}
	}
	return TimelineItem{Event: e, Icon: FallbackIcon, Label: labelFromKind(e.Kind)}
}

func labelFromKind(k domain.ActivityKind) string {
	words := strings.Fields(strings.ToLower(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(string(k))))
	if len(words) == 0 {
		return "Activity"
	}
	r := []rune(strings.Join(words, " "))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// BuildTimeline buckets events by UTC day, newest day first. The input order does not
// matter and the input slice is not modified.
func BuildTimeline(events []domain.ActivityEvent, now time.Time) []DayBucket {
	today := now.UTC().Format(dayKeyLayout)
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dayKeyLayout)

	byKey := make(map[string]*DayBucket)
	for _, e := range events {
		key := e.OccurredAt.UTC().Format(dayKeyLayout)
		b, ok := byKey[key]
		if !ok {
			b = &DayBucket{Key: key, Label: dayLabel(key, today, yesterday), Items: []TimelineItem{}}
			byKey[key] = b
		}
		if !e.Kind.IsTelemetry() {
			b.Items = append(b.Items, Decorate(e))
			continue
		}
		if e.Kind == domain.ActivityEmailClicked {
			b.Clicks++
		} else {
			b.Opens++
		}
	}

	out := make([]DayBucket, 0, len(byKey))
	for _, b := range byKey {
		sort.Slice(b.Items, func(i, j int) bool {
			ei, ej := b.Items[i].Event, b.Items[j].Event
			if ei.OccurredAt.Equal(ej.OccurredAt) {
				return ei.ID > ej.ID
			}
			return ei.OccurredAt.After(ej.OccurredAt)
		})
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}

func dayLabel(key, today, yesterday string) string {
	switch key {
	case today:
		return LabelToday
	case yesterday:
		return LabelYesterday
	}
	d, err := time.Parse(dayKeyLayout, key)
	if err != nil {
		return key
	}
	return d.Format(dayLabelLayout)
}
