// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/rplogin/jwt"
)

// IdToken is an oidc id_token
type IdToken string

// RedactedIdToken is the redacted string or json for an oidc id_token
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token
func (t IdToken) String() string {
	return RedactedIdToken
}

// MarshalJSON will redact the token
func (t IdToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIdToken)
}

// Claims is a verified id_token claim set.
type Claims struct {
	raw  map[string]interface{}
	json []byte
}

// NewClaims wraps a claim set. It's used by validators and tests.
func NewClaims(raw map[string]interface{}) (*Claims, error) {
	const op = "oidc.NewClaims"
	if raw == nil {
		return nil, fmt.Errorf("%s: missing claims: %w", op, ErrNilParameter)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Claims{raw: raw, json: b}, nil
}

// Audience returns the "aud" claim, which may be a string or a list.
func (c *Claims) Audience() []string {
	switch v := c.raw["aud"].(type) {
	case string:
		return []string{v}
	case []interface{}:
		auds := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				auds = append(auds, s)
			}
		}
		return auds
	case []string:
		return v
	}
	return nil
}

// Nonce returns the "nonce" claim.
func (c *Claims) Nonce() string { return c.StringClaim("nonce") }

// Subject returns the "sub" claim.
func (c *Claims) Subject() string { return c.StringClaim("sub") }

// Issuer returns the "iss" claim.
func (c *Claims) Issuer() string { return c.StringClaim("iss") }

// StringClaim returns a string claim, or "" when it's absent or not a string.
func (c *Claims) StringClaim(name string) string {
	s, _ := c.raw[name].(string)
	return s
}

// JSON returns the claim set as a JSON document.
func (c *Claims) JSON() []byte { return c.json }

// validatorOptions is the set of available options for NewIDTokenValidator
type validatorOptions struct {
	withKeySet jwt.KeySet
	withNow    func() time.Time
}

func getValidatorOpts(opt ...Option) validatorOptions {
	opts := validatorOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// IDTokenValidator verifies id_token signatures, issuer and lifetime. The
// audience and nonce are left to the caller, which knows the flow.
type IDTokenValidator struct {
	validator *jwt.Validator
	expected  jwt.Expected
}

// NewIDTokenValidator creates an IDTokenValidator for the provider. Keys
// come from WithKeySet, else from the Config's JWKSURL, else from discovery
// of the Config's Issuer.
//
// Supported options: WithKeySet, WithNow
func NewIDTokenValidator(ctx context.Context, c *Config, opt ...Option) (*IDTokenValidator, error) {
	const op = "oidc.NewIDTokenValidator"
	if c == nil {
		return nil, fmt.Errorf("%s: missing config: %w", op, ErrNilParameter)
	}
	if c.Issuer == "" {
		return nil, fmt.Errorf("%s: missing issuer: %w", op, ErrInvalidIssuer)
	}
	opts := getValidatorOpts(opt...)
	ks := opts.withKeySet
	if ks == nil {
		var err error
		switch {
		case c.JWKSURL != "":
			ks, err = jwt.NewJSONWebKeySet(ctx, c.JWKSURL, c.ProviderCA)
		default:
			ks, err = jwt.NewOIDCDiscoveryKeySet(ctx, c.Issuer, c.ProviderCA)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	v, err := jwt.NewValidator(ks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &IDTokenValidator{
		validator: v,
		expected: jwt.Expected{
			Issuer:            c.Issuer,
			SigningAlgorithms: c.SupportedSigningAlgs,
			Now:               opts.withNow,
		},
	}, nil
}

// Validate verifies the id_token and returns its claims.
func (v *IDTokenValidator) Validate(ctx context.Context, t IdToken) (*Claims, error) {
	const op = "IDTokenValidator.Validate"
	if t == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}
	raw, err := v.validator.Validate(ctx, string(t), v.expected)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIdTokenVerificationFailed, err)
	}
	return NewClaims(raw)
}
