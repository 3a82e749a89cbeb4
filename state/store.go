// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import "context"

// Store is the shared, keyed TTL store for CSRF tokens. Each operation is
// independently atomic and tokens are only reachable by their random ID, so
// concurrent flows never observe each other's tokens.
type Store interface {
	// Create saves a new token. It returns ErrAlreadyExists when the ID is
	// taken.
	Create(ctx context.Context, t *Token) error

	// Read returns the token for id. Absent and expired tokens both return
	// ErrNotFound.
	Read(ctx context.Context, id string) (*Token, error)

	// Delete removes the token for id. Deleting an absent token is not an
	// error.
	Delete(ctx context.Context, id string) error
}

// Consumer is implemented by stores which can read and delete a token in a
// single atomic step. Callers should prefer it over Read followed by Delete
// when it's available.
type Consumer interface {
	// Consume returns the token for id and removes it. Absent and expired
	// tokens both return ErrNotFound.
	Consume(ctx context.Context, id string) (*Token, error)
}
