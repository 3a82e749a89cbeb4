// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package login is a relying party login flow: it redirects the browser to an
OAuth2 or OIDC provider, validates the callback and resolves, or provisions,
the local identity.

A Module is built once per realm and provider and is safe for concurrent use.
Each request is handed to Process together with the FlowState returned by
the previous call; the host keeps that FlowState in its session between
requests.

	m, err := login.NewModule(ctx, cfg, store, resolver, provisioner, login.WithLogger(logger))
	if err != nil {
		// handle error
	}
	req, err := login.NewRequest(r)
	if err != nil {
		// reply 400 with login.LocalizeError(lang, err)
	}
	res, err := m.Process(ctx, req, flow)
	switch {
	case err != nil:
		// show login.LocalizeError(lang, err), log err
	case res.Status == login.StatusRedirect:
		// set res.Cookies, save res.Flow and redirect to res.RedirectURL
	case res.Status == login.StatusContinue:
		// save res.Flow and prompt for res.Flow.State
	case res.Status == login.StatusSucceeded:
		// res.User is logged in
	}

CSRF state values and nonces never leave the server: the browser only holds
the id of a state.Token in the OAUTH_CSRF cookie. A token is consumed by the
first callback that presents it, whether the callback succeeds or not. A
callback whose token is unknown, expired or doesn't match restarts the flow
with a new redirect instead of failing.
*/
package login
