// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthURL(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Endpoints:   Endpoints{AuthURL: "https://idp.example.com/auth"},
			ClientID:    "client1",
			RedirectURL: "https://rp.example.com/cb",
			Scopes:      []string{"openid", "profile"},
		}
	}
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := func() string {
		sum := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(sum[:])
	}()

	tests := []struct {
		name       string
		config     func() *Config
		state      string
		nonce      string
		verifier   string
		opt        []Option
		want       map[string]string
		wantAbsent []string
		wantErrIs  error
	}{
		{
			name:   "oidc",
			config: base,
			state:  "st",
			nonce:  "n",
			want: map[string]string{
				"response_type": "code",
				"client_id":     "client1",
				"redirect_uri":  "https://rp.example.com/cb",
				"scope":         "openid profile",
				"state":         "st",
				"nonce":         "n",
			},
			wantAbsent: []string{"code_challenge"},
		},
		{
			name:       "oauth2-ignores-nonce",
			config:     func() *Config { c := base(); c.Scopes = []string{"profile"}; return c },
			state:      "st",
			nonce:      "n",
			want:       map[string]string{"scope": "profile", "state": "st"},
			wantAbsent: []string{"nonce"},
		},
		{
			name:     "pkce",
			config:   func() *Config { c := base(); c.PKCE = true; return c },
			state:    "st",
			nonce:    "n",
			verifier: verifier,
			want:     map[string]string{"code_challenge": challenge, "code_challenge_method": "S256"},
		},
		{
			name:   "extra-params",
			config: base,
			state:  "st",
			nonce:  "n",
			opt:    []Option{WithAuthURLParams(map[string]string{"prompt": "login", "ui_locales": "de"})},
			want:   map[string]string{"prompt": "login", "ui_locales": "de"},
		},
		{name: "nil-config", config: func() *Config { return nil }, state: "st", wantErrIs: ErrNilParameter},
		{name: "missing-state", config: base, nonce: "n", wantErrIs: ErrInvalidParameter},
		{name: "missing-nonce", config: base, state: "st", wantErrIs: ErrInvalidParameter},
		{
			name:      "missing-verifier",
			config:    func() *Config { c := base(); c.PKCE = true; return c },
			state:     "st",
			nonce:     "n",
			wantErrIs: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := AuthURL(tt.config(), tt.state, tt.nonce, tt.verifier, tt.opt...)
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErrIs)
				return
			}
			require.NoError(err)
			u, err := url.Parse(got)
			require.NoError(err)
			assert.Equal("idp.example.com", u.Host)
			q := u.Query()
			for k, v := range tt.want {
				assert.Equal(v, q.Get(k), k)
			}
			for _, k := range tt.wantAbsent {
				assert.False(q.Has(k), k)
			}
		})
	}
}
