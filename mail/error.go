// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrNotFound         = errors.New("not found")
	ErrSendFailed       = errors.New("send failed")
)
