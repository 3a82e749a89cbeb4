// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package registry holds named plugin factories. Plugins are looked up once,
// when configuration is loaded, never per request.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrAlreadyExists    = errors.New("already registered")
	ErrNotFound         = errors.New("not registered")
)

// Registry maps names to factories of type F. It is safe for concurrent use.
type Registry[F any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]F
}

// New creates an empty Registry. kind names the capability and only appears
// in error messages.
func New[F any](kind string) *Registry[F] {
	return &Registry[F]{
		kind:      kind,
		factories: map[string]F{},
	}
}

// Register adds a factory under name. Names are case-insensitive.
func (r *Registry[F]) Register(name string, f F) error {
	const op = "registry.(Registry).Register"
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("%s: missing %s name: %w", op, r.kind, ErrInvalidParameter)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("%s: %s %q: %w", op, r.kind, key, ErrAlreadyExists)
	}
	r.factories[key] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry[F]) Lookup(name string) (F, error) {
	const op = "registry.(Registry).Lookup"
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%s: %s %q: %w", op, r.kind, key, ErrNotFound)
	}
	return f, nil
}

// Names returns the registered names in lexical order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
