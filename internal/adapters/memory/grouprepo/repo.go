package grouprepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
)

// Repo is an in-memory implementation of grouprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.GroupID]domain.Group
	idByKey map[string]domain.GroupID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.GroupID]domain.Group),
		idByKey: make(map[string]domain.GroupID),
	}
}

func (r *Repo) Create(ctx context.Context, g domain.Group) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[g.ID]; ok || g.ID == "" {
		return grouprepo.ErrAlreadyExists
	}
	if _, ok := r.idByKey[g.CanonicalKey]; ok {
		return grouprepo.ErrAlreadyExists
	}
	g.MemberCount = 0
	r.byID[g.ID] = g
	r.idByKey[g.CanonicalKey] = g.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, g domain.Group) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[g.ID]
	if !ok {
		return grouprepo.ErrNotFound
	}
	if owner, ok := r.idByKey[g.CanonicalKey]; ok && owner != g.ID {
		return grouprepo.ErrAlreadyExists
	}
	delete(r.idByKey, existing.CanonicalKey)
	g.MemberCount = 0
	r.byID[g.ID] = g
	r.idByKey[g.CanonicalKey] = g.ID
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.GroupID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return grouprepo.ErrNotFound
	}
	delete(r.idByKey, existing.CanonicalKey)
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return domain.Group{}, grouprepo.ErrNotFound
	}
	return g, nil
}

func (r *Repo) GetByCanonicalKey(ctx context.Context, key string) (domain.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByKey[key]
	if !ok {
		return domain.Group{}, grouprepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Group, 0, len(r.byID))
	for _, g := range r.byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni == nj {
			return string(out[i].ID) < string(out[j].ID)
		}
		return ni < nj
	})
	return out, nil
}
