// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc holds the provider side of a relying party login: the provider
Config, the authorization URL, callback parameters, the code exchange and
profile Client, and id_token validation.

The flow is OIDC when the Config's scopes include "openid". Otherwise it's a
plain OAuth2 authorization code flow, and no nonce or id_token is involved.

Example:

	c, err := oidc.NewConfig(issuer, clientID, clientSecret, redirectURL,
		oidc.WithScopes("openid", "profile"),
		oidc.WithMixUpMitigation(),
	)
	if err != nil {
		// handle error
	}
	if err := c.Discover(ctx); err != nil {
		// handle error
	}
	if err := c.Validate(); err != nil {
		// handle error
	}
	redirectTo, err := oidc.AuthURL(c, token.State, token.Nonce, token.Verifier)

TestProvider is a local provider for tests which serves every endpoint the
package needs.
*/
package oidc
