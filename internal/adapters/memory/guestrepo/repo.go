package guestrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

// Repo is an in-memory implementation of guestrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.GuestID]guestrepo.Guest
	idByEmail map[string]domain.GuestID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.GuestID]guestrepo.Guest),
		idByEmail: make(map[string]domain.GuestID),
	}
}

func (r *Repo) Create(ctx context.Context, g guestrepo.Guest) error {
	_ = ctx
	if g.ID == "" {
		return guestrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[g.ID]; ok {
		return guestrepo.ErrAlreadyExists
	}
	if key := emailKey(g.Email); key != "" {
		if _, ok := r.idByEmail[key]; ok {
			return guestrepo.ErrEmailInUse
		}
		r.idByEmail[key] = g.ID
	}
	r.byID[g.ID] = cloneGuest(g)
	return nil
}

func (r *Repo) Update(ctx context.Context, g guestrepo.Guest) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[g.ID]
	if !ok {
		return guestrepo.ErrNotFound
	}
	newKey := emailKey(g.Email)
	if newKey != "" {
		if owner, ok := r.idByEmail[newKey]; ok && owner != g.ID {
			return guestrepo.ErrEmailInUse
		}
	}
	if oldKey := emailKey(existing.Email); oldKey != "" && oldKey != newKey {
		delete(r.idByEmail, oldKey)
	}
	if newKey != "" {
		r.idByEmail[newKey] = g.ID
	}
	r.byID[g.ID] = cloneGuest(g)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.GuestID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return guestrepo.ErrNotFound
	}
	if key := emailKey(existing.Email); key != "" {
		delete(r.idByEmail, key)
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GuestID) (guestrepo.Guest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	return cloneGuest(g), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (guestrepo.Guest, error) {
	_ = ctx
	key := domain.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByEmail[key]
	if !ok || key == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	return cloneGuest(r.byID[id]), nil
}

func (r *Repo) GetByInviteTokenHash(ctx context.Context, hash string) (guestrepo.Guest, error) {
	_ = ctx
	if hash == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.byID {
		if g.InviteTokenHash == hash {
			return cloneGuest(g), nil
		}
	}
	return guestrepo.Guest{}, guestrepo.ErrNotFound
}

func (r *Repo) MarkInviteSent(ctx context.Context, id domain.GuestID, tokenHash, accessCode string, sentAt time.Time) (guestrepo.Guest, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	g.InviteTokenHash = tokenHash
	g.InviteStatus = domain.InviteSent
	g.InviteSentAt = &sentAt
	if g.AccessCode == "" {
		g.AccessCode = accessCode
	}
	g.UpdatedAt = sentAt
	r.byID[id] = g
	return cloneGuest(g), nil
}

func (r *Repo) ConsumeInviteToken(ctx context.Context, hash string, now time.Time) (guestrepo.Guest, error) {
	_ = ctx
	if hash == "" {
		return guestrepo.Guest{}, guestrepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, g := range r.byID {
		if g.InviteTokenHash != hash {
			continue
		}
		g.InviteTokenHash = ""
		g.InviteStatus = domain.InviteRedeemed
		g.UpdatedAt = now
		r.byID[id] = g
		return cloneGuest(g), nil
	}
	return guestrepo.Guest{}, guestrepo.ErrNotFound
}

func (r *Repo) List(ctx context.Context, f guestrepo.Filter) ([]guestrepo.Guest, error) {
	_ = ctx
	tokens := strings.Fields(strings.ToLower(f.Query))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]guestrepo.Guest, 0, len(r.byID))
	for _, g := range r.byID {
		if !matches(g, f, tokens) {
			continue
		}
		out = append(out, cloneGuest(g))
	}
	sortGuests(out)
	return out, nil
}

func (r *Repo) SetGroup(ctx context.Context, ids []domain.GuestID, group *domain.GroupID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		g, ok := r.byID[id]
		if !ok {
			continue
		}
		if group == nil {
			g.GroupID = nil
		} else {
			v := *group
			g.GroupID = &v
		}
		r.byID[id] = g
	}
	return nil
}

func matches(g guestrepo.Guest, f guestrepo.Filter, tokens []string) bool {
	switch {
	case f.GroupID != nil:
		if g.GroupID == nil || *g.GroupID != *f.GroupID {
			return false
		}
	case f.Ungrouped:
		if g.GroupID != nil {
			return false
		}
	}
	if f.RSVP != nil && g.RSVP != *f.RSVP {
		return false
	}
	if len(tokens) == 0 {
		return true
	}
	hay := strings.ToLower(g.FirstName + " " + g.LastName)
	if g.Email != nil {
		hay += " " + strings.ToLower(*g.Email)
	}
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

func emailKey(p *string) string {
	if p == nil {
		return ""
	}
	return domain.NormalizeEmail(*p)
}

func cloneGuest(g guestrepo.Guest) guestrepo.Guest {
	out := g
	out.Email = cloneStringPtr(g.Email)
	out.Phone = cloneStringPtr(g.Phone)
	out.DietaryNotes = cloneStringPtr(g.DietaryNotes)
	if g.GroupID != nil {
		v := *g.GroupID
		out.GroupID = &v
	}
	if g.InviteSentAt != nil {
		v := *g.InviteSentAt
		out.InviteSentAt = &v
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortGuests(gs []guestrepo.Guest) {
	sort.Slice(gs, func(i, j int) bool {
		li, lj := strings.ToLower(gs[i].LastName), strings.ToLower(gs[j].LastName)
		if li != lj {
			return li < lj
		}
		fi, fj := strings.ToLower(gs[i].FirstName), strings.ToLower(gs[j].FirstName)
		if fi != fj {
			return fi < fj
		}
		return string(gs[i].ID) < string(gs[j].ID)
	})
}
