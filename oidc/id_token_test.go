// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/rplogin/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdToken_redacted(t *testing.T) {
	t.Parallel()
	tk := IdToken("eyJhbGciOi")
	assert.Equal(t, RedactedIdToken, fmt.Sprintf("%s", tk))
	b, err := json.Marshal(tk)
	require.NoError(t, err)
	assert.Equal(t, `"`+RedactedIdToken+`"`, string(b))
}

func TestClaims(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	c, err := NewClaims(map[string]interface{}{
		"aud":   "client1",
		"nonce": "n-1",
		"sub":   "alice",
		"iss":   "https://idp.example.com",
		"n":     float64(1),
	})
	require.NoError(err)
	assert.Equal([]string{"client1"}, c.Audience())
	assert.Equal("n-1", c.Nonce())
	assert.Equal("alice", c.Subject())
	assert.Equal("https://idp.example.com", c.Issuer())
	assert.Empty(c.StringClaim("n"))
	assert.JSONEq(`{"aud":"client1","nonce":"n-1","sub":"alice","iss":"https://idp.example.com","n":1}`, string(c.JSON()))

	c, err = NewClaims(map[string]interface{}{"aud": []interface{}{"a", "b", 3}})
	require.NoError(err)
	assert.Equal([]string{"a", "b"}, c.Audience())

	_, err = NewClaims(nil)
	assert.ErrorIs(err, ErrNilParameter)
}

func TestIDTokenValidator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("jwks", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		v, err := NewIDTokenValidator(ctx, tp.Config(testRedirectURL))
		require.NoError(err)

		claims, err := v.Validate(ctx, tp.IssueIDToken("n-1"))
		require.NoError(err)
		assert.Equal("n-1", claims.Nonce())
		assert.Equal([]string{TestClientID}, claims.Audience())
		assert.Equal(TestSubject, claims.Subject())

		_, err = v.Validate(ctx, "")
		assert.ErrorIs(err, ErrMissingIdToken)
	})

	t.Run("discovery", func(t *testing.T) {
		tp := StartTestProvider(t)
		c := tp.Config(testRedirectURL)
		c.JWKSURL = ""
		v, err := NewIDTokenValidator(ctx, c)
		require.NoError(t, err)
		_, err = v.Validate(ctx, tp.IssueIDToken("n-1"))
		assert.NoError(t, err)
	})

	t.Run("wrong-issuer", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.SetCustomIssuer("https://evil.example.com")
		v, err := NewIDTokenValidator(ctx, tp.Config(testRedirectURL))
		require.NoError(t, err)
		_, err = v.Validate(ctx, tp.IssueIDToken("n-1"))
		assert.ErrorIs(t, err, ErrIdTokenVerificationFailed)
		assert.ErrorIs(t, err, jwt.ErrInvalidIssuer)
	})

	t.Run("wrong-alg", func(t *testing.T) {
		tp := StartTestProvider(t)
		v, err := NewIDTokenValidator(ctx, tp.Config(testRedirectURL, WithSupportedSigningAlgs(jwt.RS256)))
		require.NoError(t, err)
		_, err = v.Validate(ctx, tp.IssueIDToken("n-1"))
		assert.ErrorIs(t, err, jwt.ErrUnsupportedAlg)
	})

	t.Run("expired", func(t *testing.T) {
		tp := StartTestProvider(t)
		later := func() time.Time { return time.Now().Add(time.Hour) }
		v, err := NewIDTokenValidator(ctx, tp.Config(testRedirectURL), WithNow(later))
		require.NoError(t, err)
		_, err = v.Validate(ctx, tp.IssueIDToken("n-1"))
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("static-key-set", func(t *testing.T) {
		tp := StartTestProvider(t)
		pub, _ := tp.SigningKeys()
		ks, err := jwt.NewStaticKeySet([]string{pub})
		require.NoError(t, err)
		v, err := NewIDTokenValidator(ctx, tp.Config(testRedirectURL), WithKeySet(ks))
		require.NoError(t, err)
		_, err = v.Validate(ctx, tp.IssueIDToken(""))
		assert.NoError(t, err)
	})

	t.Run("missing-issuer", func(t *testing.T) {
		_, err := NewIDTokenValidator(ctx, &Config{})
		assert.ErrorIs(t, err, ErrInvalidIssuer)
		_, err = NewIDTokenValidator(ctx, nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}
