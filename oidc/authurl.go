// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/rplogin/internal/strutils"
	"golang.org/x/oauth2"
)

// authURLOptions is the set of available options for AuthURL
type authURLOptions struct {
	withParams map[string]string
}

func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// AuthURL builds the provider authorization URL for one flow. The nonce is
// required for OIDC flows and ignored otherwise. The verifier is required
// when the Config enables PKCE and ignored otherwise.
//
// Supported options: WithAuthURLParams
func AuthURL(c *Config, state, nonce, verifier string, opt ...Option) (string, error) {
	const op = "oidc.AuthURL"
	switch {
	case c == nil:
		return "", fmt.Errorf("%s: missing config: %w", op, ErrNilParameter)
	case c.AuthURL == "":
		return "", fmt.Errorf("%s: missing auth URL: %w", op, ErrInvalidParameter)
	case state == "":
		return "", fmt.Errorf("%s: missing state: %w", op, ErrInvalidParameter)
	case c.IsOIDC() && nonce == "":
		return "", fmt.Errorf("%s: missing nonce for an oidc flow: %w", op, ErrInvalidParameter)
	case c.PKCE && verifier == "":
		return "", fmt.Errorf("%s: missing PKCE verifier: %w", op, ErrInvalidParameter)
	}
	opts := getAuthURLOpts(opt...)

	var authOpts []oauth2.AuthCodeOption
	if c.IsOIDC() {
		authOpts = append(authOpts, oidc.Nonce(nonce))
	}
	if c.PKCE {
		authOpts = append(authOpts, oauth2.S256ChallengeOption(verifier))
	}
	for _, k := range strutils.SortedKeys(opts.withParams) {
		authOpts = append(authOpts, oauth2.SetAuthURLParam(k, opts.withParams[k]))
	}
	return c.OAuth2Config().AuthCodeURL(state, authOpts...), nil
}
