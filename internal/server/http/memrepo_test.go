package httpserver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// memStore backs all three repositories in memory for API tests.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	catalog []model.CatalogItem
	entries map[uuid.UUID]model.OwnedEntry
}

func newMemStore(catalog ...model.CatalogItem) *memStore {
	return &memStore{
		users:   map[uuid.UUID]model.User{},
		catalog: catalog,
		entries: map[uuid.UUID]model.OwnedEntry{},
	}
}

type memUsers struct{ s *memStore }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, x := range m.s.users {
		if x.Email == u.Email || x.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now().UTC()
	m.s.users[u.ID] = *u
	return nil
}

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return errs.ErrNotFound
	}
	for eid, e := range m.s.entries {
		if e.UserID == id {
			delete(m.s.entries, eid)
		}
	}
	delete(m.s.users, id)
	return nil
}

type memCatalog struct{ s *memStore }

func (m memCatalog) match(it model.CatalogItem, f model.CatalogFilter) bool {
	if f.Weapon != "" && it.Weapon != f.Weapon {
		return false
	}
	if f.Rarity != "" && it.Rarity != f.Rarity {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		return strings.Contains(strings.ToLower(it.SkinName), q) || strings.Contains(strings.ToLower(it.Weapon), q)
	}
	return true
}

func (m memCatalog) filtered(f model.CatalogFilter) []model.CatalogItem {
	out := []model.CatalogItem{}
	for _, it := range m.s.catalog {
		if m.match(it, f) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weapon != out[j].Weapon {
			return out[i].Weapon < out[j].Weapon
		}
		return out[i].SkinName < out[j].SkinName
	})
	return out
}

func (m memCatalog) List(_ context.Context, f model.CatalogFilter, limit, offset int) ([]model.CatalogItem, int, error) {
	all := m.filtered(f)
	if offset >= len(all) {
		return []model.CatalogItem{}, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

func (m memCatalog) Search(_ context.Context, q string, limit int) ([]model.CatalogItem, error) {
	all := m.filtered(model.CatalogFilter{Query: q})
	return all[:min(limit, len(all))], nil
}

func (m memCatalog) Reconcile(context.Context, string, []model.ImportItem, bool) (model.ImportStats, error) {
	return model.ImportStats{}, nil
}

type memEntries struct{ s *memStore }

func (m memEntries) ListByOwner(_ context.Context, userID uuid.UUID) ([]model.OwnedEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.OwnedEntry{}
	for _, e := range m.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memEntries) Create(_ context.Context, e *model.OwnedEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, it := range m.s.catalog {
		if it.ID == e.SkinID {
			now := time.Now().UTC()
			e.CreatedAt, e.UpdatedAt = now, now
			e.Weapon, e.SkinName, e.Rarity = it.Weapon, it.SkinName, it.Rarity
			m.s.entries[e.ID] = *e
			return nil
		}
	}
	return errs.ErrNotFound
}

func (m memEntries) Update(_ context.Context, userID, id uuid.UUID, p model.EntryPatch) (*model.OwnedEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.entries[id]
	if !ok || e.UserID != userID {
		return nil, errs.ErrNotFound
	}
	p.Apply(&e)
	e.UpdatedAt = time.Now().UTC()
	m.s.entries[id] = e
	return &e, nil
}

func (m memEntries) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.entries[id]
	if !ok || e.UserID != userID {
		return errs.ErrNotFound
	}
	delete(m.s.entries, id)
	return nil
}

// openLimiter never blocks.
type openLimiter struct{}

func (openLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return true, 0, nil
}
func (openLimiter) Success(context.Context, string, []byte) error { return nil }
func (openLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	return false, 0, nil
}
