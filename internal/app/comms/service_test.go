package comms

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memclock "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/clock"
	memgrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/grouprepo"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/secrets"
)

type outbox struct {
	mu     sync.Mutex
	emails []messaging.Email
	sms    []messaging.SMS
	failTo map[string]bool
	// onSend runs before an email is accepted, standing in for work that happens while
	// the provider call is in flight.
	onSend func(messaging.Email)
}

func (o *outbox) SendEmail(_ context.Context, m messaging.Email) error {
	if o.onSend != nil {
		o.onSend(m)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failTo[m.To] {
		return errors.New("provider rejected recipient")
	}
	o.emails = append(o.emails, m)
	return nil
}

func (o *outbox) SendSMS(_ context.Context, m messaging.SMS) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sms = append(o.sms, m)
	return nil
}

type fixture struct {
	svc    *Service
	clk    *memclock.ManualClock
	guests *memguestrepo.Repo
	groups *memgrouprepo.Repo
	acts   *memactivityrepo.Repo
	box    *outbox
	obs    map[string]int
	obsMu  *sync.Mutex
}

func newFixture(t *testing.T, withSMS bool) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	guests := memguestrepo.NewRepo()
	groups := memgrouprepo.NewRepo()
	acts := memactivityrepo.NewRepo()
	box := &outbox{failTo: map[string]bool{}}
	obs := map[string]int{}
	mu := &sync.Mutex{}
	o := Options{
		PortalBaseURL: "https://rsvp.example.com/",
		Workers:       2,
		Observe: func(ch, outcome string) {
			mu.Lock()
			defer mu.Unlock()
			obs[ch+"/"+outcome]++
		},
	}
	if withSMS {
		o.SMS = box
	}
	svc := NewService(guests, groups, activity.NewRecorder(acts, clk), clk, box, o)
	return fixture{svc: svc, clk: clk, guests: guests, groups: groups, acts: acts, box: box, obs: obs, obsMu: mu}
}

func (f fixture) addGuest(t *testing.T, id, email, phone string, group *domain.GroupID) {
	t.Helper()
	g := domain.Guest{
		ID:           domain.GuestID(id),
		FirstName:    strings.ToUpper(id[:1]) + id[1:],
		LastName:     "Tester",
		GroupID:      group,
		RSVP:         domain.RSVPPending,
		InviteStatus: domain.InviteNotSent,
		AccessCode:   "ABC234",
	}
	if email != "" {
		g.Email = &email
	}
	if phone != "" {
		g.Phone = &phone
	}
	require.NoError(t, f.guests.Create(context.Background(), guestrepo.Guest{Guest: g}))
}

func statusOf(r Report, id domain.GuestID) Delivery {
	for _, d := range r.Deliveries {
		if d.GuestID == id {
			return d
		}
	}
	return Delivery{}
}

func TestService_SendInvites_StoresOnlyHashAndRedeems(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	f.addGuest(t, "nomail", "", "", nil)

	rep, err := f.svc.SendInvites(ctx, InviteRequest{AllPending: true})
	require.NoError(t, err)
	assert.Equal(t, DeliverySent, statusOf(rep, "ada").Status)
	assert.Equal(t, DeliverySkipped, statusOf(rep, "nomail").Status)

	require.Len(t, f.box.emails, 1)
	m := f.box.emails[0]
	assert.Equal(t, "ada", m.GuestID)
	prefix := "https://rsvp.example.com/invite/"
	i := strings.Index(m.Text, prefix)
	require.GreaterOrEqual(t, i, 0, "body=%q", m.Text)
	token := strings.Fields(m.Text[i+len(prefix):])[0]
	assert.Contains(t, m.Text, "ABC234")

	stored, err := f.guests.GetByID(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteSent, stored.InviteStatus)
	assert.NotNil(t, stored.InviteSentAt)
	assert.Equal(t, secrets.HashToken(token), stored.InviteTokenHash)
	assert.NotContains(t, stored.InviteTokenHash, token)

	g, err := f.svc.RedeemInvite(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.GuestID("ada"), g.ID)
	assert.Equal(t, domain.InviteRedeemed, g.InviteStatus)

	_, err = f.svc.RedeemInvite(ctx, token)
	assert.True(t, apperr.Is(err, "INVITE_INVALID"), "err=%v", err)
	_, err = f.svc.RedeemInvite(ctx, "")
	assert.True(t, apperr.Is(err, "INVITE_INVALID"), "err=%v", err)

	id := domain.GuestID("ada")
	es, err := f.acts.List(ctx, activityrepo.Query{GuestID: &id})
	require.NoError(t, err)
	kinds := []domain.ActivityKind{}
	for _, e := range es {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []domain.ActivityKind{domain.ActivityInviteSent, domain.ActivityInviteRedeemed}, kinds)

	// Already-sent guests are not part of AllPending.
	rep2, err := f.svc.SendInvites(ctx, InviteRequest{AllPending: true})
	require.NoError(t, err)
	assert.Equal(t, 0, rep2.Count(DeliverySent))
}

func TestService_SendInvites_ProviderFailureIsReported(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	f.addGuest(t, "bob", "bob@example.com", "", nil)
	f.box.failTo["bob@example.com"] = true

	rep, err := f.svc.SendInvites(ctx, InviteRequest{GuestIDs: []domain.GuestID{"ada", "bob", "ada", "ghost"}})
	require.NoError(t, err)
	assert.Len(t, rep.Deliveries, 3)
	assert.Equal(t, DeliveryFailed, statusOf(rep, "bob").Status)
	assert.Equal(t, "guest not found", statusOf(rep, "ghost").Reason)

	bob, err := f.guests.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteNotSent, bob.InviteStatus)
	assert.Empty(t, bob.InviteTokenHash)
	assert.Equal(t, 1, f.obs["EMAIL/failed"])

	_, err = f.svc.SendInvites(ctx, InviteRequest{})
	assert.True(t, apperr.Is(err, "VALIDATION_ERROR"), "err=%v", err)
}

func TestService_SendInvites_KeepsConcurrentGuestChanges(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)

	// The guest answers while the invite email is still being delivered.
	f.box.onSend = func(m messaging.Email) {
		g, err := f.guests.GetByID(ctx, domain.GuestID(m.GuestID))
		if err != nil {
			return
		}
		g.RSVP = domain.RSVPAttending
		g.PlusOnes = 1
		_ = f.guests.Update(ctx, g)
	}

	rep, err := f.svc.SendInvites(ctx, InviteRequest{AllPending: true})
	require.NoError(t, err)
	assert.Equal(t, DeliverySent, statusOf(rep, "ada").Status)

	stored, err := f.guests.GetByID(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPAttending, stored.RSVP)
	assert.Equal(t, 1, stored.PlusOnes)
	assert.Equal(t, domain.InviteSent, stored.InviteStatus)
	assert.NotEmpty(t, stored.InviteTokenHash)
}

func TestService_SendInvites_AccessCodeIssuedWhenMissing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	g, err := f.guests.GetByID(ctx, "ada")
	require.NoError(t, err)
	g.AccessCode = ""
	require.NoError(t, f.guests.Update(ctx, g))

	_, err = f.svc.SendInvites(ctx, InviteRequest{GuestIDs: []domain.GuestID{"ada"}})
	require.NoError(t, err)

	stored, err := f.guests.GetByID(ctx, "ada")
	require.NoError(t, err)
	require.NotEmpty(t, stored.AccessCode)
	require.Len(t, f.box.emails, 1)
	assert.Contains(t, f.box.emails[0].Text, stored.AccessCode)
}

// failingInviteStore fails MarkInviteSent for one guest.
type failingInviteStore struct {
	*memguestrepo.Repo
	failID domain.GuestID
}

func (s failingInviteStore) MarkInviteSent(ctx context.Context, id domain.GuestID, hash, code string, at time.Time) (guestrepo.Guest, error) {
	if id == s.failID {
		return guestrepo.Guest{}, errors.New("connection reset")
	}
	return s.Repo.MarkInviteSent(ctx, id, hash, code, at)
}

func TestService_SendInvites_StorageFailureKeepsReport(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	f.addGuest(t, "bob", "bob@example.com", "", nil)
	f.addGuest(t, "cy", "cy@example.com", "", nil)

	svc := NewService(failingInviteStore{Repo: f.guests, failID: "bob"}, f.groups,
		activity.NewRecorder(f.acts, f.clk), f.clk, f.box, Options{Workers: 1})

	rep, err := svc.SendInvites(ctx, InviteRequest{GuestIDs: []domain.GuestID{"ada", "bob", "cy"}})
	require.NoError(t, err)
	require.Len(t, rep.Deliveries, 3)
	assert.Equal(t, DeliverySent, statusOf(rep, "ada").Status)
	assert.Equal(t, DeliverySent, statusOf(rep, "cy").Status)
	bob := statusOf(rep, "bob")
	assert.Equal(t, DeliveryFailed, bob.Status)
	assert.Contains(t, bob.Reason, "could not be saved")
	assert.Len(t, f.box.emails, 3)
}

func TestService_SendInvites_GuestDeletedDuringSend(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	f.box.onSend = func(m messaging.Email) {
		_ = f.guests.Delete(ctx, domain.GuestID(m.GuestID))
	}

	rep, err := f.svc.SendInvites(ctx, InviteRequest{GuestIDs: []domain.GuestID{"ada"}})
	require.NoError(t, err)
	assert.Equal(t, DeliverySkipped, statusOf(rep, "ada").Status)
}

func TestService_RedeemInvite_OnlyOnceUnderConcurrency(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()
	f.addGuest(t, "ada", "ada@example.com", "", nil)

	_, err := f.svc.SendInvites(ctx, InviteRequest{GuestIDs: []domain.GuestID{"ada"}})
	require.NoError(t, err)
	require.Len(t, f.box.emails, 1)
	prefix := "https://rsvp.example.com/invite/"
	text := f.box.emails[0].Text
	token := strings.Fields(text[strings.Index(text, prefix)+len(prefix):])[0]

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RedeemInvite(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.Is(err, "INVITE_INVALID"):
				invalid++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, invalid)

	id := domain.GuestID("ada")
	es, err := f.acts.List(ctx, activityrepo.Query{GuestID: &id})
	require.NoError(t, err)
	redeemed := 0
	for _, e := range es {
		if e.Kind == domain.ActivityInviteRedeemed {
			redeemed++
		}
	}
	assert.Equal(t, 1, redeemed)
}

func TestService_SendNudge_GroupAndExplicitRecipients(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()

	gid := domain.GroupID("g-1")
	require.NoError(t, f.groups.Create(ctx, domain.Group{ID: gid, Name: "Tester", CanonicalKey: "tester"}))
	f.addGuest(t, "ada", "ada@example.com", "", &gid)
	f.addGuest(t, "bob", "", "", &gid)
	f.addGuest(t, "cy", "cy@example.com", "", nil)

	rep, err := f.svc.SendNudge(ctx, NudgeRequest{
		GuestIDs: []domain.GuestID{"cy", "ada"},
		GroupID:  &gid,
		Channel:  messaging.ChannelEmail,
		Subject:  "Please RSVP",
		Body:     "Hi {{.FirstName}}, RSVP at {{.PortalURL}}",
	})
	require.NoError(t, err)
	assert.Len(t, rep.Deliveries, 3)
	assert.Equal(t, 2, rep.Count(DeliverySent))
	assert.Equal(t, "no email address", statusOf(rep, "bob").Reason)

	bodies := map[string]string{}
	for _, m := range f.box.emails {
		bodies[m.GuestID] = m.Text
	}
	assert.Equal(t, "Hi Ada, RSVP at https://rsvp.example.com", bodies["ada"])
	assert.Equal(t, "Hi Cy, RSVP at https://rsvp.example.com", bodies["cy"])

	id := domain.GuestID("cy")
	es, err := f.acts.List(ctx, activityrepo.Query{GuestID: &id})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, domain.ActivityNudgeSent, es[0].Kind)
	assert.Equal(t, "Please RSVP", es[0].Payload["subject"])
}

func TestService_SendNudge_SMS(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.addGuest(t, "ada", "", "+15550100000", nil)
	f.addGuest(t, "bob", "", "", nil)
	rep, err := f.svc.SendNudge(context.Background(), NudgeRequest{
		GuestIDs: []domain.GuestID{"ada", "bob"},
		Channel:  messaging.ChannelSMS,
		Body:     "Reminder for {{.FullName}}",
	})
	require.NoError(t, err)
	assert.Equal(t, DeliverySent, statusOf(rep, "ada").Status)
	assert.Equal(t, "no phone number", statusOf(rep, "bob").Reason)
	require.Len(t, f.box.sms, 1)
	assert.Equal(t, "Reminder for Ada Tester", f.box.sms[0].Body)

	noSMS := newFixture(t, false)
	noSMS.addGuest(t, "ada", "", "+15550100000", nil)
	rep, err = noSMS.svc.SendNudge(context.Background(), NudgeRequest{
		GuestIDs: []domain.GuestID{"ada"},
		Channel:  messaging.ChannelSMS,
		Body:     "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "sms not configured", statusOf(rep, "ada").Reason)
}

func TestService_SendNudge_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.addGuest(t, "ada", "ada@example.com", "", nil)
	missing := domain.GroupID("missing")

	cases := []struct {
		name string
		req  NudgeRequest
		code string
	}{
		{"bad channel", NudgeRequest{GuestIDs: []domain.GuestID{"ada"}, Channel: "FAX", Body: "x"}, "VALIDATION_ERROR"},
		{"email without subject", NudgeRequest{GuestIDs: []domain.GuestID{"ada"}, Channel: messaging.ChannelEmail, Body: "x"}, "VALIDATION_ERROR"},
		{"empty body", NudgeRequest{GuestIDs: []domain.GuestID{"ada"}, Channel: messaging.ChannelSMS, Body: "  "}, "VALIDATION_ERROR"},
		{"unparsable template", NudgeRequest{GuestIDs: []domain.GuestID{"ada"}, Channel: messaging.ChannelSMS, Body: "{{.FirstName"}, "VALIDATION_ERROR"},
		{"unknown field", NudgeRequest{GuestIDs: []domain.GuestID{"ada"}, Channel: messaging.ChannelSMS, Body: "{{.Password}}"}, "VALIDATION_ERROR"},
		{"no recipients", NudgeRequest{Channel: messaging.ChannelSMS, Body: "x"}, "VALIDATION_ERROR"},
		{"unknown group", NudgeRequest{GroupID: &missing, Channel: messaging.ChannelSMS, Body: "x"}, "GROUP_NOT_FOUND"},
	}
	for _, tc := range cases {
		_, err := f.svc.SendNudge(context.Background(), tc.req)
		assert.True(t, apperr.Is(err, tc.code), "%s: err=%v", tc.name, err)
	}
}
