// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/rplogin/internal/strutils"
	"gopkg.in/square/go-jose.v2/jwt"
)

// DefaultLeewaySeconds defines the amount of leeway that's used by default
// for validating the "nbf" (Not Before) and "iat" (Issued At) claims.
const DefaultLeewaySeconds = 150

// Validator validates JSON Web Tokens (JWT) by providing signature
// verification and claims set validation.
type Validator struct {
	keySets []KeySet
}

// NewValidator returns a Validator that uses the given KeySets to verify JWT
// signatures. A token is accepted when any one of the KeySets verifies it.
func NewValidator(keySets ...KeySet) (*Validator, error) {
	const op = "jwt.NewValidator"
	if len(keySets) == 0 {
		return nil, fmt.Errorf("%s: at least one key set is required: %w", op, ErrInvalidParameter)
	}
	for _, ks := range keySets {
		if ks == nil {
			return nil, fmt.Errorf("%s: key set must not be nil: %w", op, ErrNilParameter)
		}
	}
	return &Validator{
		keySets: keySets,
	}, nil
}

// Expected defines the expected claims values to assert when validating a JWT.
// For claims that involve validation of the JWT with respect to time, leeway
// fields are provided to account for potential clock skew.
type Expected struct {
	// The expected JWT "iss" (issuer) claim value. If empty, validation is skipped.
	Issuer string

	// The expected JWT "sub" (subject) claim value. If empty, validation is skipped.
	Subject string

	// The expected JWT "jti" (JWT ID) claim value. If empty, validation is skipped.
	ID string

	// The list of expected JWT "aud" (audience) claim values to match against.
	// The JWT claim will be considered valid if it matches any of the expected
	// audiences. If empty, validation is skipped.
	Audiences []string

	// SigningAlgorithms provides the list of expected JWS "alg" (algorithm) header
	// parameter values to match against. The JWS header parameter will be considered
	// valid if it matches any of the expected signing algorithms. If empty, RS256
	// is the only accepted algorithm.
	SigningAlgorithms []Alg

	// NotBeforeLeeway provides the option to set an amount of leeway to use when
	// validating the "nbf" (Not Before) claim. If the duration is zero or not
	// provided, a default leeway of 150 seconds will be used. If the duration is
	// negative, no leeway will be used.
	NotBeforeLeeway time.Duration

	// ExpirationLeeway provides the option to set an amount of leeway to use when
	// validating the "exp" (Expiration Time) claim. If the duration is zero or
	// negative, no leeway will be used.
	ExpirationLeeway time.Duration

	// ClockSkewLeeway provides the option to set an amount of leeway to use when
	// validating the "iat" (Issued At) claim. If the duration is zero or not
	// provided, a default leeway of 150 seconds will be used. If the duration is
	// negative, no leeway will be used.
	ClockSkewLeeway time.Duration

	// Now provides the option to specify a func for determining what the current
	// time is. The func will be used to provide the current time when validating
	// a JWT with respect to the "nbf", "iat", and "exp" claims. If not provided,
	// defaults to returning time.Now().
	Now func() time.Time
}

// Validate validates JWTs of the JWS compact serialization form.
//
// The given JWT is considered valid if:
//  1. Its signature is successfully verified.
//  2. Its claims set and header parameter values match what's given by Expected.
//  3. It's valid with respect to the current time. This means that the current
//     time must be within the times (inclusive) given by the "nbf" (Not Before)
//     and "exp" (Expiration Time) claims and after the time given by the "iat"
//     (Issued At) claim, with configurable leeway. "exp" is required.
func (v *Validator) Validate(ctx context.Context, token string, expected Expected) (map[string]interface{}, error) {
	const op = "Validator.Validate"
	if token == "" {
		return nil, fmt.Errorf("%s: missing token: %w", op, ErrInvalidParameter)
	}

	// Validate the signing algorithm in the JWS header before anything else
	if err := validateSigningAlgorithm(token, expected.SigningAlgorithms); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		allClaims map[string]interface{}
		verifyErr error
	)
	for _, ks := range v.keySets {
		if allClaims, verifyErr = ks.VerifySignature(ctx, token); verifyErr == nil {
			break
		}
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("%s: %w", op, verifyErr)
	}

	// Unmarshal all claims into the set of public JWT registered claims
	claims := jwt.Claims{}
	claimsJSON, err := json.Marshal(allClaims)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrMalformedToken)
	}
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrMalformedToken)
	}

	if expected.Issuer != "" && expected.Issuer != claims.Issuer {
		return nil, fmt.Errorf("%s: %q: %w", op, claims.Issuer, ErrInvalidIssuer)
	}
	if expected.Subject != "" && expected.Subject != claims.Subject {
		return nil, fmt.Errorf("%s: %q: %w", op, claims.Subject, ErrInvalidSubject)
	}
	if expected.ID != "" && expected.ID != claims.ID {
		return nil, fmt.Errorf("%s: %q: %w", op, claims.ID, ErrInvalidJWTID)
	}
	if len(expected.Audiences) > 0 && !validateAudience(expected.Audiences, claims.Audience) {
		return nil, fmt.Errorf("%s: %v: %w", op, []string(claims.Audience), ErrInvalidAudience)
	}

	now := time.Now()
	if expected.Now != nil {
		now = expected.Now()
	}
	if err := validateTimes(now, claims, expected); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return allClaims, nil
}

func validateTimes(now time.Time, claims jwt.Claims, expected Expected) error {
	leeway := func(d time.Duration, defaultLeeway time.Duration) time.Duration {
		switch {
		case d < 0:
			return 0
		case d == 0:
			return defaultLeeway
		default:
			return d
		}
	}
	expLeeway := leeway(expected.ExpirationLeeway, 0)
	nbfLeeway := leeway(expected.NotBeforeLeeway, DefaultLeewaySeconds*time.Second)
	iatLeeway := leeway(expected.ClockSkewLeeway, DefaultLeewaySeconds*time.Second)

	if claims.Expiry == nil {
		return ErrMissingExpiry
	}
	if exp := claims.Expiry.Time(); now.After(exp.Add(expLeeway)) {
		return fmt.Errorf("expired at %s: %w", exp.UTC().Format(time.RFC3339), ErrExpiredToken)
	}
	if claims.NotBefore != nil {
		if nbf := claims.NotBefore.Time(); now.Add(nbfLeeway).Before(nbf) {
			return fmt.Errorf("not before %s: %w", nbf.UTC().Format(time.RFC3339), ErrNotYetValid)
		}
	}
	if claims.IssuedAt != nil {
		if iat := claims.IssuedAt.Time(); now.Add(iatLeeway).Before(iat) {
			return fmt.Errorf("issued at %s: %w", iat.UTC().Format(time.RFC3339), ErrInvalidIssuedAt)
		}
	}
	return nil
}

// validateSigningAlgorithm checks whether the JWS "alg" header parameter value
// matches any of the expected signing algorithms.
func validateSigningAlgorithm(token string, expectedAlgorithms []Alg) error {
	if len(expectedAlgorithms) == 0 {
		expectedAlgorithms = []Alg{RS256}
	}
	if err := SupportedSigningAlgorithm(expectedAlgorithms...); err != nil {
		return err
	}

	jws, err := jwt.ParseSigned(token)
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrMalformedToken)
	}
	if len(jws.Headers) != 1 {
		return fmt.Errorf("expected exactly one JWS header: %w", ErrMalformedToken)
	}

	actual := Alg(jws.Headers[0].Algorithm)
	for _, alg := range expectedAlgorithms {
		if actual == alg {
			return nil
		}
	}
	return fmt.Errorf("token signed with %q: %w", actual, ErrUnsupportedAlg)
}

// validateAudience returns true if any of the expected audiences are present
// in the audience claim.
func validateAudience(expectedAudiences []string, audClaim []string) bool {
	for _, v := range expectedAudiences {
		if strutils.StrListContains(audClaim, v) {
			return true
		}
	}
	return false
}
