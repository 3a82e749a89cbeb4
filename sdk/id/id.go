// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package id generates the random identifiers and secrets used by a login
// flow: token ids, CSRF state values, nonces and activation codes. Every
// generator reads from an injectable io.Reader (see WithReader) so tests can
// be deterministic.
package id

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/hashicorp/go-uuid"
	"github.com/segmentio/ksuid"
)

// ErrInvalidParameter is returned when a generator receives an unusable
// length.
var ErrInvalidParameter = errors.New("invalid parameter")

// MinRandomBytes is the smallest number of random bytes NewRandomString will
// accept (160 bits).
const MinRandomBytes = 20

// New generates a uuid with an optional prefix.
func New(optionalPrefix string, opt ...Option) (string, error) {
	const op = "id.New"
	opts := getOpts(opt...)
	id, err := uuid.GenerateUUIDWithReader(opts.withReader)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// NewRandomString returns size random bytes encoded as unpadded base64url.
// size must be at least MinRandomBytes.
func NewRandomString(size int, opt ...Option) (string, error) {
	const op = "id.NewRandomString"
	if size < MinRandomBytes {
		return "", fmt.Errorf("%s: size %d is less than %d: %w", op, size, MinRandomBytes, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	b, err := uuid.GenerateRandomBytesWithReader(size, opts.withReader)
	if err != nil {
		return "", fmt.Errorf("%s: unable to read random bytes: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewActivationCode returns a base62 code of the given length, suitable for
// a user to copy from an email.
func NewActivationCode(length int, opt ...Option) (string, error) {
	const op = "id.NewActivationCode"
	if length <= 0 {
		return "", fmt.Errorf("%s: length must be greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	code, err := base62.RandomWithReader(length, opts.withReader)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate code: %w", op, err)
	}
	return code, nil
}

// NewTokenID returns a ksuid whose timestamp component is now. The ids sort
// by creation time, which keeps purging expired rows cheap.
func NewTokenID(now time.Time, opt ...Option) (string, error) {
	const op = "id.NewTokenID"
	opts := getOpts(opt...)
	payload, err := uuid.GenerateRandomBytesWithReader(16, opts.withReader)
	if err != nil {
		return "", fmt.Errorf("%s: unable to read random bytes: %w", op, err)
	}
	k, err := ksuid.FromParts(now, payload)
	if err != nil {
		return "", fmt.Errorf("%s: unable to build id: %w", op, err)
	}
	return k.String(), nil
}
