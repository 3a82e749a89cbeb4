// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package nonce mints OIDC nonces which can be redeemed only once.
//
// A login flow already binds its nonce to a single use CSRF token. A Service
// adds a second, process wide guard: a nonce that has been redeemed, or that
// was never minted here, is refused even if a token store hands it back.
package nonce

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

// ErrNotRedeemable is returned by Redeem for an unknown, expired or already
// redeemed nonce.
var ErrNotRedeemable = errors.New("nonce not redeemable")

// ErrInvalidParameter is returned for an invalid argument.
var ErrInvalidParameter = errors.New("invalid parameter")

// Service mints and redeems nonces. A nonce can only be redeemed within
// Validity of being minted.
type Service interface {
	Get() (string, error)
	Redeem(nonce string) error
	Validity() time.Duration
}

// NonceService is a Service backed by nonceutil. Nonces live in the memory
// of the process which minted them.
type NonceService struct {
	svc      nonceutil.NonceService
	validity time.Duration
}

var _ Service = (*NonceService)(nil)

// NewService returns an initialized NonceService whose nonces stay
// redeemable for validity. It must cover the whole login flow, so pass the
// flow's TTL.
func NewService(validity time.Duration) (*NonceService, error) {
	const op = "nonce.NewService"
	if validity <= 0 {
		return nil, fmt.Errorf("%s: validity must be positive: %w", op, ErrInvalidParameter)
	}
	svc := nonceutil.NewNonceServiceWithValidity(validity)
	if err := svc.Initialize(); err != nil {
		return nil, fmt.Errorf("%s: could not initialize nonce service: %w", op, err)
	}
	return &NonceService{svc: svc, validity: validity}, nil
}

// Validity implements Service.
func (s *NonceService) Validity() time.Duration { return s.validity }

// Get mints a new nonce.
func (s *NonceService) Get() (string, error) {
	const op = "NonceService.Get"
	n, _, err := s.svc.Get()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Redeem consumes the nonce.
func (s *NonceService) Redeem(nonce string) error {
	const op = "NonceService.Redeem"
	if nonce == "" || !s.svc.Redeem(nonce) {
		return fmt.Errorf("%s: %w", op, ErrNotRedeemable)
	}
	return nil
}
