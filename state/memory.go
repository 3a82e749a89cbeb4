// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// MemoryStore is a Store held in process memory. It's suitable for a single
// instance deployment and for tests.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
	now    func() time.Time
	logger hclog.Logger
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Consumer = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
//
// Supported options: WithLogger, WithNow
func NewMemoryStore(opt ...Option) *MemoryStore {
	opts := getStoreOpts(opt...)
	return &MemoryStore{
		tokens: map[string]*Token{},
		now:    opts.withNow,
		logger: opts.withLogger.Named("state"),
	}
}

// Create implements Store. Expired tokens are purged as a side effect.
func (s *MemoryStore) Create(_ context.Context, t *Token) error {
	const op = "MemoryStore.Create"
	if t == nil {
		return fmt.Errorf("%s: missing token: %w", op, ErrNilParameter)
	}
	if t.ID == "" {
		return fmt.Errorf("%s: missing token id: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	if _, ok := s.tokens[t.ID]; ok {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	s.tokens[t.ID] = t.Clone()
	return nil
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context, id string) (*Token, error) {
	const op = "MemoryStore.Read"
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.IsExpired(WithNow(s.now)) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return t.Clone(), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

// Consume implements Consumer. An expired token is removed and reported as
// not found.
func (s *MemoryStore) Consume(_ context.Context, id string) (*Token, error) {
	const op = "MemoryStore.Consume"
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	delete(s.tokens, id)
	if t.IsExpired(WithNow(s.now)) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return t, nil
}

// Len returns the number of tokens held, including expired ones which have
// not been purged yet.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// purgeLocked must be called with the lock held.
func (s *MemoryStore) purgeLocked() {
	var purged int
	for k, t := range s.tokens {
		if t.IsExpired(WithNow(s.now), WithExpirySkew(0)) {
			delete(s.tokens, k)
			purged++
		}
	}
	if purged > 0 {
		s.logger.Trace("purged expired csrf tokens", "count", purged)
	}
}
