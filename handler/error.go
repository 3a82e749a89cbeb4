// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrCookieFormat     = errors.New("invalid flow cookie format")
	ErrCookieInvalid    = errors.New("invalid flow cookie")
)
