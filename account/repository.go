// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Repository is the identity store boundary.
type Repository interface {
	// Search returns the identities of the realm which share at least one
	// value of at least one of the attributes.
	Search(ctx context.Context, realm string, attrs Attributes) ([]Identity, error)

	// Create adds an identity. A name already taken in the realm returns
	// ErrAlreadyExists.
	Create(ctx context.Context, realm, name string, attrs Attributes) (*Identity, error)
}

// MemoryRepository is a Repository held in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	realms map[string]map[string]Identity
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{realms: map[string]map[string]Identity{}}
}

// Search implements Repository. Results are ordered by name.
func (r *MemoryRepository) Search(_ context.Context, realm string, attrs Attributes) ([]Identity, error) {
	const op = "MemoryRepository.Search"
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%s: missing search attributes: %w", op, ErrInvalidParameter)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []Identity
	for _, ident := range r.realms[normalizeRealm(realm)] {
		if matchesAny(ident.Attributes, attrs) {
			found = append(found, cloneIdentity(ident))
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, realm, name string, attrs Attributes) (*Identity, error) {
	const op = "MemoryRepository.Create"
	name = NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%s: missing name: %w", op, ErrInvalidParameter)
	}
	realm = normalizeRealm(realm)
	r.mu.Lock()
	defer r.mu.Unlock()
	users, ok := r.realms[realm]
	if !ok {
		users = map[string]Identity{}
		r.realms[realm] = users
	}
	if _, ok := users[name]; ok {
		return nil, fmt.Errorf("%s: %q: %w", op, name, ErrAlreadyExists)
	}
	ident := Identity{Name: name, Realm: realm, Attributes: attrs.Clone()}
	if ident.Attributes == nil {
		ident.Attributes = Attributes{}
	}
	users[name] = ident
	cp := cloneIdentity(ident)
	return &cp, nil
}

// Get returns the named identity of the realm.
func (r *MemoryRepository) Get(realm, name string) (*Identity, error) {
	const op = "MemoryRepository.Get"
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.realms[normalizeRealm(realm)][NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, name, ErrNotFound)
	}
	cp := cloneIdentity(ident)
	return &cp, nil
}

func normalizeRealm(realm string) string {
	realm = strings.TrimSpace(realm)
	if !strings.HasPrefix(realm, "/") {
		realm = "/" + realm
	}
	return realm
}

func matchesAny(have, want Attributes) bool {
	for name, values := range want {
		for _, v := range values {
			for _, h := range have[name] {
				if strings.EqualFold(h, v) {
					return true
				}
			}
		}
	}
	return false
}

func cloneIdentity(i Identity) Identity {
	i.Attributes = i.Attributes.Clone()
	return i
}
