// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/rplogin/internal/strutils"
	"github.com/hashicorp/rplogin/jwt"
	sdkHttp "github.com/hashicorp/rplogin/sdk/http"
	"golang.org/x/oauth2"
)

// ScopeOpenID is the scope which turns an OAuth2 flow into an OIDC flow.
const ScopeOpenID = "openid"

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Endpoints are the provider URLs a flow talks to.
type Endpoints struct {
	// AuthURL is the authorization endpoint the browser is redirected to.
	AuthURL string

	// TokenURL is the endpoint used to exchange an authorization code.
	TokenURL string

	// UserInfoURL is the optional profile endpoint.
	UserInfoURL string

	// JWKSURL is the optional key set used to verify id_tokens. When it's
	// empty, keys are found through discovery of the Issuer.
	JWKSURL string

	// LogoutURL is the optional provider logout URL handed to the browser in a
	// correlation cookie.
	LogoutURL string
}

// Config represents the configuration of one provider for a 3-legged OAuth2
// or OIDC authorization code flow.
type Config struct {
	Endpoints

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret. It may only be empty for
	// public clients using PKCE.
	ClientSecret ClientSecret

	// Issuer is the expected "iss" of id_tokens and, with mix-up mitigation,
	// of callbacks.
	Issuer string

	// RedirectURL is where the provider sends the browser back to. Behind a
	// proxy it's the proxy's URL.
	RedirectURL string

	// Scopes requested of the provider. The flow is OIDC when they include
	// "openid".
	Scopes []string

	// MixUpMitigation requires callbacks to carry client_id and iss values
	// equal to ClientID and Issuer.
	MixUpMitigation bool

	// PKCE enables a S256 code challenge.
	PKCE bool

	// SupportedSigningAlgs is the list of accepted id_token signing
	// algorithms. It defaults to RS256.
	SupportedSigningAlgs []jwt.Alg

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string
}

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withScopes               []string
	withProviderCA           string
	withMixUpMitigation      bool
	withPKCE                 bool
	withSupportedSigningAlgs []jwt.Alg
	withEndpoints            Endpoints
}

func configDefaults() configOptions {
	return configOptions{
		withScopes:               []string{ScopeOpenID},
		withSupportedSigningAlgs: []jwt.Alg{jwt.RS256},
	}
}

func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// NewConfig composes a new config for a provider. Endpoints are not
// validated, since they may still be discovered: call Validate once they're
// all known.
//
// Supported options: WithScopes, WithProviderCA, WithMixUpMitigation,
// WithPKCE, WithSupportedSigningAlgs, WithEndpoints
func NewConfig(issuer, clientID string, clientSecret ClientSecret, redirectURL string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Endpoints:            opts.withEndpoints,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		Issuer:               issuer,
		RedirectURL:          redirectURL,
		Scopes:               strutils.RemoveDuplicatesStable(opts.withScopes, false),
		MixUpMitigation:      opts.withMixUpMitigation,
		PKCE:                 opts.withPKCE,
		SupportedSigningAlgs: opts.withSupportedSigningAlgs,
		ProviderCA:           opts.withProviderCA,
	}
	if c.ClientID == "" {
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	return c, nil
}

// IsOIDC reports whether the flow requests the "openid" scope.
func (c *Config) IsOIDC() bool {
	return strutils.StrListContains(c.Scopes, ScopeOpenID)
}

// Validate the provider configuration. Every problem is reported, not just
// the first one.
func (c *Config) Validate() error {
	const op = "oidc.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.ClientSecret == "" && !c.PKCE {
		result = multierror.Append(result, fmt.Errorf("client secret is empty and PKCE is disabled: %w", ErrInvalidParameter))
	}
	if c.Issuer == "" && (c.IsOIDC() || c.MixUpMitigation) {
		result = multierror.Append(result, fmt.Errorf("issuer is required for OIDC and mix-up mitigation: %w", ErrInvalidParameter))
	}
	if len(c.Scopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("scopes are empty: %w", ErrInvalidParameter))
	}
	for _, u := range []struct {
		name     string
		value    string
		required bool
	}{
		{"issuer", c.Issuer, false},
		{"redirect URL", c.RedirectURL, true},
		{"auth URL", c.AuthURL, true},
		{"token URL", c.TokenURL, true},
		{"user info URL", c.UserInfoURL, false},
		{"jwks URL", c.JWKSURL, false},
		{"logout URL", c.LogoutURL, false},
	} {
		if err := validateURL(u.value, u.required); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", u.name, err))
		}
	}
	if len(c.SupportedSigningAlgs) == 0 && c.IsOIDC() {
		result = multierror.Append(result, fmt.Errorf("supported algorithms is empty: %w", ErrInvalidParameter))
	}
	if err := jwt.SupportedSigningAlgorithm(c.SupportedSigningAlgs...); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", err.Error(), ErrInvalidParameter))
	}
	if c.ProviderCA != "" {
		if _, err := c.HTTPClient(); err != nil {
			result = multierror.Append(result, fmt.Errorf("provider CA: %w: %w", ErrInvalidParameter, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateURL(raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("is empty: %w", ErrInvalidParameter)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is invalid: %s: %w", raw, err.Error(), ErrInvalidParameter)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http or https URL: %w", raw, ErrInvalidParameter)
	}
	return nil
}

// OAuth2Config returns the golang.org/x/oauth2 view of the Config.
func (c *Config) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: string(c.ClientSecret),
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
		RedirectURL: c.RedirectURL,
		Scopes:      c.Scopes,
	}
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient(opt ...sdkHttp.Option) (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, opt...)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// Discover fills every empty endpoint from the issuer's discovery document.
// Endpoints that are already set are left alone.
func (c *Config) Discover(ctx context.Context) error {
	const op = "Config.Discover"
	if c.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	hc, err := c.HTTPClient()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p, err := oidc.NewProvider(HTTPClientContext(ctx, hc), c.Issuer)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, err.Error(), ErrDiscoveryFailed)
	}
	var doc struct {
		UserInfoURL string `json:"userinfo_endpoint"`
		JWKSURL     string `json:"jwks_uri"`
		LogoutURL   string `json:"end_session_endpoint"`
	}
	if err := p.Claims(&doc); err != nil {
		return fmt.Errorf("%s: %s: %w", op, err.Error(), ErrDiscoveryFailed)
	}
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&c.AuthURL, p.Endpoint().AuthURL)
	set(&c.TokenURL, p.Endpoint().TokenURL)
	set(&c.UserInfoURL, doc.UserInfoURL)
	set(&c.JWKSURL, doc.JWKSURL)
	set(&c.LogoutURL, doc.LogoutURL)
	return nil
}

// CheckMixUp verifies that a callback was issued for this client by this
// issuer. It's a no-op unless MixUpMitigation is enabled.
func (c *Config) CheckMixUp(p *CallbackParams) error {
	const op = "Config.CheckMixUp"
	if !c.MixUpMitigation {
		return nil
	}
	if p == nil {
		return fmt.Errorf("%s: missing callback parameters: %w", op, ErrNilParameter)
	}
	if p.ClientID != c.ClientID {
		return fmt.Errorf("%s: client_id %q does not match: %w", op, p.ClientID, ErrMixUp)
	}
	if p.Issuer != c.Issuer {
		return fmt.Errorf("%s: iss %q does not match: %w", op, p.Issuer, ErrMixUp)
	}
	return nil
}
