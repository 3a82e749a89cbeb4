// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	sdkHttp "github.com/hashicorp/rplogin/sdk/http"
	"gopkg.in/square/go-jose.v2/jwt"
)

// KeySet verifies the signature of a compact JWS and returns its claims.
// Nothing but the signature is checked; see Validator.
type KeySet interface {
	VerifySignature(ctx context.Context, token string) (claims map[string]interface{}, err error)
}

// RemoteKeySet verifies signatures with the keys published at a JWKS URL.
// Keys are fetched lazily and refreshed when a token names an unknown key.
type RemoteKeySet struct {
	jwksURL string
	keys    oidc.KeySet
}

var _ KeySet = (*RemoteKeySet)(nil)

// NewJSONWebKeySet returns a RemoteKeySet for jwksURL. caPEM optionally pins
// the CA of the key server.
func NewJSONWebKeySet(ctx context.Context, jwksURL string, caPEM string) (*RemoteKeySet, error) {
	const op = "jwt.NewJSONWebKeySet"
	if jwksURL == "" {
		return nil, fmt.Errorf("%s: missing jwks url: %w", op, ErrInvalidParameter)
	}
	ctx, err := clientContext(ctx, caPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RemoteKeySet{jwksURL: jwksURL, keys: oidc.NewRemoteKeySet(ctx, jwksURL)}, nil
}

// NewOIDCDiscoveryKeySet looks up the jwks_uri in the discovery document of
// issuer and returns a RemoteKeySet for it. The discovered issuer must equal
// issuer.
func NewOIDCDiscoveryKeySet(ctx context.Context, issuer string, caPEM string) (*RemoteKeySet, error) {
	const op = "jwt.NewOIDCDiscoveryKeySet"
	if issuer == "" {
		return nil, fmt.Errorf("%s: missing issuer: %w", op, ErrInvalidParameter)
	}
	ctx, err := clientContext(ctx, caPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover %q: %w", op, issuer, err)
	}
	var doc struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := p.Claims(&doc); err != nil || doc.JWKSURL == "" {
		return nil, fmt.Errorf("%s: discovery document of %q has no jwks_uri: %w", op, issuer, ErrInvalidParameter)
	}
	return &RemoteKeySet{jwksURL: doc.JWKSURL, keys: oidc.NewRemoteKeySet(ctx, doc.JWKSURL)}, nil
}

// URL returns the JWKS URL keys are fetched from.
func (ks *RemoteKeySet) URL() string { return ks.jwksURL }

// VerifySignature implements KeySet.
func (ks *RemoteKeySet) VerifySignature(ctx context.Context, token string) (map[string]interface{}, error) {
	const op = "RemoteKeySet.VerifySignature"
	payload, err := ks.keys.VerifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrInvalidSignature)
	}
	claims := map[string]interface{}{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrMalformedToken)
	}
	return claims, nil
}

// StaticKeySet verifies signatures with a fixed list of public keys. It's
// used when the provider's keys are configured rather than published.
type StaticKeySet struct {
	keys []interface{}
}

var _ KeySet = (*StaticKeySet)(nil)

// NewStaticKeySet parses PEM encoded PKIX public keys or x509 certificates
// holding RSA, ECDSA or Ed25519 keys.
func NewStaticKeySet(publicKeys []string) (*StaticKeySet, error) {
	const op = "jwt.NewStaticKeySet"
	if len(publicKeys) == 0 {
		return nil, fmt.Errorf("%s: missing public keys: %w", op, ErrInvalidParameter)
	}
	ks := &StaticKeySet{keys: make([]interface{}, 0, len(publicKeys))}
	for i, k := range publicKeys {
		key, err := parsePublicKeyPEM([]byte(k))
		if err != nil {
			return nil, fmt.Errorf("%s: key %d: %w", op, i, err)
		}
		ks.keys = append(ks.keys, key)
	}
	return ks, nil
}

// VerifySignature implements KeySet. Keys are tried in order.
func (ks *StaticKeySet) VerifySignature(_ context.Context, token string) (map[string]interface{}, error) {
	const op = "StaticKeySet.VerifySignature"
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrMalformedToken)
	}
	for _, key := range ks.keys {
		claims := map[string]interface{}{}
		if err := parsed.Claims(key, &claims); err == nil {
			return claims, nil
		}
	}
	return nil, fmt.Errorf("%s: none of %d keys verified the signature: %w", op, len(ks.keys), ErrInvalidSignature)
}

func parsePublicKeyPEM(data []byte) (interface{}, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found: %w", ErrInvalidParameter)
	}
	var key interface{}
	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse certificate: %s: %w", err.Error(), ErrInvalidParameter)
		}
		key = cert.PublicKey
	default:
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse public key: %s: %w", err.Error(), ErrInvalidParameter)
		}
		key = k
	}
	switch key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T: %w", key, ErrInvalidParameter)
	}
}

// clientContext carries the provider http client for go-oidc, pinned to
// caPEM when it's set.
func clientContext(ctx context.Context, caPEM string) (context.Context, error) {
	c, err := sdkHttp.NewClient(caPEM)
	if err != nil {
		return nil, fmt.Errorf("invalid CA PEM: %w: %w", ErrInvalidParameter, err)
	}
	return oidc.ClientContext(ctx, c), nil
}
