// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrInvalidIssuer             = errors.New("invalid issuer")
	ErrInvalidAuthorizationCode  = errors.New("invalid authorization code")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrMixUp                     = errors.New("callback does not belong to this provider")
	ErrExchangeFailed            = errors.New("authorization code exchange failed")
	ErrUserInfoFailed            = errors.New("user info failed")
	ErrDiscoveryFailed           = errors.New("provider discovery failed")
)

// ResponseError is returned when a token or user info endpoint answers with a
// non-2xx status. Body holds the raw response for diagnostics and must not be
// shown to end users.
type ResponseError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("provider responded with status %d: %s", e.StatusCode, string(e.Body))
}

// ProviderError is an error returned to the redirect URL by the provider,
// for example after the user declined consent.
type ProviderError struct {
	Code        string
	Description string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider error: %s", e.Code)
	}
	return fmt.Sprintf("provider error: %s: %s", e.Code, e.Description)
}
