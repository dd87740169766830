// Package storeconfig exposes the configured store list.
package storeconfig

import "commerce-backoffice/internal/domain"

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	stores []domain.Store
	byID   map[string]int
}

func New(stores []domain.Store) *Registry {
	r := &Registry{stores: stores, byID: make(map[string]int, len(stores))}
	for i, s := range stores {
		r.byID[s.ID] = i
	}
	return r
}

// Get returns the store with id, or false when it is not configured.
func (r *Registry) Get(id string) (*domain.Store, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	s := r.stores[i]
	return &s, true
}

// All returns the stores in configuration order.
func (r *Registry) All() []domain.Store {
	out := make([]domain.Store, len(r.stores))
	copy(out, r.stores)
	return out
}

// ContactEmails returns the non-empty contact addresses of the given store ids.
func (r *Registry) ContactEmails(ids []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, id := range ids {
		s, ok := r.Get(id)
		if !ok || s.ContactEmail == "" {
			continue
		}
		if _, dup := seen[s.ContactEmail]; dup {
			continue
		}
		seen[s.ContactEmail] = struct{}{}
		out = append(out, s.ContactEmail)
	}
	return out
}
