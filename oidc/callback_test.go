// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallbackParams(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	v := url.Values{}
	v.Set("code", "abc123")
	v.Set("state", "st")
	v.Set("client_id", "client1")
	v.Set("iss", "https://idp.example.com")

	p := ParseCallbackParams(v)
	assert.Equal(&CallbackParams{Code: "abc123", State: "st", ClientID: "client1", Issuer: "https://idp.example.com"}, p)
	assert.NoError(p.ProviderError())

	v.Set("error", "access_denied")
	v.Set("error_description", "user declined")
	err := ParseCallbackParams(v).ProviderError()
	var pErr *ProviderError
	assert.True(errors.As(err, &pErr))
	assert.Equal("access_denied", pErr.Code)
	assert.Equal("provider error: access_denied: user declined", err.Error())
}

func TestValidateAuthorizationCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "simple", code: "abc123"},
		{name: "url-safe", code: "SplxlOBeZQQYbYS6WxSbIA-_.~%2F"},
		{name: "max-length", code: strings.Repeat("a", MaxAuthorizationCodeLength)},
		{name: "empty", code: "", wantErr: true},
		{name: "too-long", code: strings.Repeat("a", MaxAuthorizationCodeLength+1), wantErr: true},
		{name: "space", code: "abc 123", wantErr: true},
		{name: "newline", code: "abc\n123", wantErr: true},
		{name: "markup", code: "<script>", wantErr: true},
		{name: "quote", code: `abc"`, wantErr: true},
		{name: "semicolon", code: "abc;", wantErr: true},
		{name: "backslash", code: `abc\`, wantErr: true},
		{name: "non-ascii", code: "abcé", wantErr: true},
		{name: "control", code: "abc\x7f", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAuthorizationCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAuthorizationCode)
				return
			}
			assert.NoError(t, err)
		})
	}
}
