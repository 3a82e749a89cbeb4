// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		password     string
		confirmation string
		wantKey      string
		wantErrIs    error
	}{
		{name: "empty", wantKey: KeyPasswordEmpty, wantErrIs: ErrPasswordEmpty},
		{name: "short", password: "1234567", confirmation: "1234567", wantKey: KeyPasswordTooShort, wantErrIs: ErrPasswordTooShort},
		{name: "short-multibyte", password: "äöüäöüä", confirmation: "äöüäöüä", wantKey: KeyPasswordTooShort, wantErrIs: ErrPasswordTooShort},
		{name: "mismatch", password: "12345678", confirmation: "12345679", wantKey: KeyPasswordMismatch, wantErrIs: ErrPasswordMismatch},
		{name: "valid", password: "12345678", confirmation: "12345678"},
		{name: "valid-multibyte", password: "äöüäöüäö", confirmation: "äöüäöüäö"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tt.password, tt.confirmation)
			if tt.wantErrIs == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErrIs)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, tt.wantKey, KeyOf(err))
		})
	}
}

func Test_activationLink(t *testing.T) {
	t.Parallel()
	link, err := activationLink("https://rp.example.com/activate?realm=%2Facme", "Ab12Cd34")
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/activate?activation_code=Ab12Cd34&realm=%2Facme", link)

	_, err = activationLink("://bad", "Ab12Cd34")
	assert.Error(t, err)
}

func Test_newActivationCode(t *testing.T) {
	t.Parallel()
	code, err := newActivationCode(strings.NewReader(strings.Repeat("a", 1024)))
	require.NoError(t, err)
	assert.Len(t, code, ActivationCodeLength)

	_, err = newActivationCode(strings.NewReader(""))
	assert.Error(t, err)
}

func TestModule_emailAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		attribute string
		flow      FlowState
		want      string
	}{
		{name: "profile", flow: FlowState{Profile: []byte(`{"email":"p@acme.example"}`), Claims: []byte(`{"email":"c@acme.example"}`)}, want: "p@acme.example"},
		{name: "claims", flow: FlowState{Profile: []byte(`{"name":"J"}`), Claims: []byte(`{"email":"c@acme.example"}`)}, want: "c@acme.example"},
		{name: "array", flow: FlowState{Profile: []byte(`{"email":[" first@acme.example ","second@acme.example"]}`)}, want: "first@acme.example"},
		{name: "nested", attribute: "contact.mail", flow: FlowState{Profile: []byte(`{"contact":{"mail":"n@acme.example"}}`)}, want: "n@acme.example"},
		{name: "missing", flow: FlowState{Profile: []byte(`{"name":"J"}`)}},
		{name: "empty"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &Module{config: &Config{EmailAttribute: tt.attribute}}
			assert.Equal(t, tt.want, m.emailAddress(tt.flow))
		})
	}
}
