// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrNotFound is returned when a token is absent, already consumed, or
	// expired.
	ErrNotFound = errors.New("csrf token not found")

	ErrAlreadyExists = errors.New("csrf token already exists")
)
