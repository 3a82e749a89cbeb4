// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"fmt"
	"time"

	"github.com/hashicorp/rplogin/sdk/id"
)

// StateValueBytes is the number of random bytes in a CSRF state value and a
// generated nonce (256 bits).
const StateValueBytes = 32

// DefaultExpirySkew defines a default time skew when checking a Token's
// expiration.
const DefaultExpirySkew = 1 * time.Second

// Token is the server side half of one login redirect. Only ID leaves the
// server, in a correlation cookie. State, Nonce and Verifier are compared
// against what the provider sends back and are never taken from the browser.
//
// A Token is created right before the redirect, read and deleted exactly once
// when the callback arrives, and never updated.
type Token struct {
	// ID is an opaque, time ordered identifier (a ksuid).
	ID string

	// State is the CSRF state value sent as the "state" parameter.
	State string

	// Nonce is bound into the id_token. It's empty for plain OAuth2 flows.
	Nonce string

	// Verifier is the PKCE code verifier. It's empty when PKCE is disabled.
	Verifier string

	// Expiration is when the token stops being accepted.
	Expiration time.Time
}

// NewToken mints a Token which expires after expireIn.
//
// Supported options: WithNonce, WithGeneratedNonce, WithPKCE, WithReader,
// WithNow
func NewToken(expireIn time.Duration, opt ...Option) (*Token, error) {
	const op = "state.NewToken"
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getTokenOpts(opt...)
	idOpts := []id.Option{id.WithReader(opts.withReader)}
	now := opts.withNow()

	tokenID, err := id.NewTokenID(now, idOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a token id: %w", op, err)
	}
	stateValue, err := id.NewRandomString(StateValueBytes, idOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state value: %w", op, err)
	}
	t := &Token{
		ID:         tokenID,
		State:      stateValue,
		Nonce:      opts.withNonce,
		Expiration: now.Add(expireIn),
	}
	if t.Nonce == "" && opts.withGeneratedNonce {
		if t.Nonce, err = id.NewRandomString(StateValueBytes, idOpts...); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a nonce: %w", op, err)
		}
	}
	if opts.withPKCE {
		// 32 bytes encode to a 43 character verifier, the RFC 7636 minimum.
		if t.Verifier, err = id.NewRandomString(32, idOpts...); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a code verifier: %w", op, err)
		}
	}
	if t.State == t.ID || (t.Nonce != "" && (t.Nonce == t.State || t.Nonce == t.ID)) {
		return nil, fmt.Errorf("%s: token id, state and nonce must be distinct: %w", op, ErrInvalidParameter)
	}
	return t, nil
}

// IsExpired returns true if the token has expired. Supports the
// WithExpirySkew and WithNow options; the default skew is
// DefaultExpirySkew.
func (t *Token) IsExpired(opt ...Option) bool {
	opts := getTokenOpts(opt...)
	return t.Expiration.Before(opts.withNow().Add(opts.withExpirySkew))
}

// Clone returns a copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
