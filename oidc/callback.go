// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"net/url"
	"strings"
)

// Callback query or form parameter names.
const (
	ParamCode             = "code"
	ParamState            = "state"
	ParamClientID         = "client_id"
	ParamIssuer           = "iss"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
)

// MaxAuthorizationCodeLength is the longest authorization code accepted.
const MaxAuthorizationCodeLength = 2000

// forbiddenCodeChars may break out of a URL, header, or markup context.
const forbiddenCodeChars = "<>\"'`;\\"

// CallbackParams are the parameters a provider sends to the redirect URL.
type CallbackParams struct {
	// Code is the authorization code.
	Code string

	// State is the returned CSRF state value.
	State string

	// ClientID and Issuer are only used for mix-up mitigation.
	ClientID string
	Issuer   string

	// Error and ErrorDescription are set when the provider refused the
	// request.
	Error            string
	ErrorDescription string
}

// ParseCallbackParams reads the callback parameters from a request's query or
// form values.
func ParseCallbackParams(v url.Values) *CallbackParams {
	return &CallbackParams{
		Code:             v.Get(ParamCode),
		State:            v.Get(ParamState),
		ClientID:         v.Get(ParamClientID),
		Issuer:           v.Get(ParamIssuer),
		Error:            v.Get(ParamError),
		ErrorDescription: v.Get(ParamErrorDescription),
	}
}

// ProviderError returns the provider's error, or nil when the callback
// carries none.
func (p *CallbackParams) ProviderError() error {
	if p.Error == "" {
		return nil
	}
	return &ProviderError{Code: p.Error, Description: p.ErrorDescription}
}

// ValidateAuthorizationCode checks that code is a non-empty run of printable
// ASCII, at most MaxAuthorizationCodeLength long, without whitespace or
// characters that could escape a URL, header, or markup context.
func ValidateAuthorizationCode(code string) error {
	const op = "oidc.ValidateAuthorizationCode"
	if code == "" {
		return fmt.Errorf("%s: code is empty: %w", op, ErrInvalidAuthorizationCode)
	}
	if len(code) > MaxAuthorizationCodeLength {
		return fmt.Errorf("%s: code is longer than %d: %w", op, MaxAuthorizationCodeLength, ErrInvalidAuthorizationCode)
	}
	for i := 0; i < len(code); i++ {
		b := code[i]
		if b <= ' ' || b >= 0x7f || strings.IndexByte(forbiddenCodeChars, b) >= 0 {
			return fmt.Errorf("%s: code contains a forbidden character at %d: %w", op, i, ErrInvalidAuthorizationCode)
		}
	}
	return nil
}
