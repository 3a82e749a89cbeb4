// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrMalformedToken   = errors.New("malformed jwt")
	ErrUnsupportedAlg   = errors.New("unsupported signing algorithm")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidIssuer    = errors.New("invalid issuer (iss) claim")
	ErrInvalidSubject   = errors.New("invalid subject (sub) claim")
	ErrInvalidJWTID     = errors.New("invalid jwt id (jti) claim")
	ErrInvalidAudience  = errors.New("invalid audience (aud) claim")
	ErrMissingExpiry    = errors.New("missing expiration (exp) claim")
	ErrExpiredToken     = errors.New("token is expired")
	ErrNotYetValid      = errors.New("token is not yet valid")
	ErrInvalidIssuedAt  = errors.New("token issued in the future")
)
