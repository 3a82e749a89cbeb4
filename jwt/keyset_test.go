// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	now := time.Now()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ks, err := NewStaticKeySet([]string{
		testPublicKeyPEM(t, rsaKey.Public()),
		testPublicKeyPEM(t, ecKey.Public()),
		testPublicKeyPEM(t, edPub),
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		key       crypto.PrivateKey
		alg       Alg
		token     string
		wantErrIs error
	}{
		{name: "rs256", key: rsaKey, alg: RS256},
		{name: "ps384", key: rsaKey, alg: PS384},
		{name: "es256", key: ecKey, alg: ES256},
		{name: "eddsa", key: edPriv, alg: EdDSA},
		{name: "unknown-key", key: otherKey, alg: ES256, wantErrIs: ErrInvalidSignature},
		{name: "malformed", token: "not.a.jwt", wantErrIs: ErrMalformedToken},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			token := tt.token
			if token == "" {
				token = testSignJWT(t, tt.key, tt.alg, testClaims(now), "")
			}
			got, err := ks.VerifySignature(context.Background(), token)
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErrIs)
				return
			}
			require.NoError(err)
			assert.Equal("alice", got["sub"])
		})
	}
}

func TestNewStaticKeySet(t *testing.T) {
	t.Parallel()
	_, err := NewStaticKeySet(nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewStaticKeySet([]string{"not a pem"})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestJSONWebKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)
	srv, caPEM := testJWKSServer(t, priv.Public(), ES256)

	_, err = NewJSONWebKeySet(ctx, "", caPEM)
	assert.ErrorIs(err, ErrInvalidParameter)
	_, err = NewJSONWebKeySet(ctx, srv.URL+"/.well-known/jwks.json", "bad pem")
	assert.ErrorIs(err, ErrInvalidParameter)

	ks, err := NewJSONWebKeySet(ctx, srv.URL+"/.well-known/jwks.json", caPEM)
	require.NoError(err)
	assert.Equal(srv.URL+"/.well-known/jwks.json", ks.URL())

	got, err := ks.VerifySignature(ctx, testSignJWT(t, priv, ES256, testClaims(time.Now()), testKeyID))
	require.NoError(err)
	assert.Equal("https://idp.example.com", got["iss"])

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)
	_, err = ks.VerifySignature(ctx, testSignJWT(t, other, ES256, testClaims(time.Now()), testKeyID))
	assert.ErrorIs(err, ErrInvalidSignature)
}

func TestOIDCDiscoveryKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	srv, caPEM := testJWKSServer(t, priv.Public(), RS256)

	_, err = NewOIDCDiscoveryKeySet(ctx, "", caPEM)
	assert.ErrorIs(err, ErrInvalidParameter)
	_, err = NewOIDCDiscoveryKeySet(ctx, srv.URL, "")
	assert.Error(err, "the test server's CA is not trusted")

	ks, err := NewOIDCDiscoveryKeySet(ctx, srv.URL, caPEM)
	require.NoError(err)
	assert.Equal(srv.URL+"/.well-known/jwks.json", ks.URL())

	// issuer and expiry are not checked by the key set
	claims := testClaims(time.Now().Add(-time.Hour))
	got, err := ks.VerifySignature(ctx, testSignJWT(t, priv, RS256, claims, testKeyID))
	require.NoError(err)
	assert.Equal("alice", got["sub"])
}

func Test_parsePublicKeyPEM(t *testing.T) {
	t.Parallel()
	_, caPEM := testJWKSServer(t, nil, ES256)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name    string
		pem     string
		wantErr bool
	}{
		{name: "pkix", pem: testPublicKeyPEM(t, ecKey.Public())},
		{name: "certificate", pem: caPEM},
		{name: "empty", pem: "", wantErr: true},
		{name: "garbage-block", pem: "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, err := parsePublicKeyPEM([]byte(tt.pem))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, key)
		})
	}
}
