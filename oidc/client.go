// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkHttp "github.com/hashicorp/rplogin/sdk/http"
	"golang.org/x/oauth2"
)

// maxResponseBytes bounds the size of a user info response.
const maxResponseBytes = 1 << 20

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withHTTPClient *http.Client
	withTimeout    time.Duration
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// Client exchanges authorization codes and fetches user profiles over HTTP.
// Every request carries a timeout.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a Client for the provider.
//
// Supported options: WithHTTPClient, WithTimeout
func NewClient(c *Config, opt ...Option) (*Client, error) {
	const op = "oidc.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: missing config: %w", op, ErrNilParameter)
	}
	opts := getClientOpts(opt...)
	hc := opts.withHTTPClient
	if hc == nil {
		var err error
		if hc, err = c.HTTPClient(sdkHttp.WithTimeout(opts.withTimeout)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &Client{
		config:     c,
		httpClient: hc,
	}, nil
}

// Exchange trades an authorization code for tokens. The verifier is sent
// when the Config enables PKCE. Non-2xx answers return a *ResponseError
// wrapped with ErrExchangeFailed.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*Token, error) {
	const op = "Client.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: missing code: %w", op, ErrInvalidParameter)
	}
	var exchangeOpts []oauth2.AuthCodeOption
	if c.config.PKCE {
		if verifier == "" {
			return nil, fmt.Errorf("%s: missing PKCE verifier: %w", op, ErrInvalidParameter)
		}
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}

	oauth2Token, err := c.config.OAuth2Config().Exchange(HTTPClientContext(ctx, c.httpClient), code, exchangeOpts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			respErr := &ResponseError{StatusCode: retrieveErr.Response.StatusCode, Body: retrieveErr.Body}
			return nil, fmt.Errorf("%s: %w: %w", op, ErrExchangeFailed, respErr)
		}
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrExchangeFailed)
	}

	t := &Token{
		AccessToken:  AccessToken(oauth2Token.AccessToken),
		RefreshToken: RefreshToken(oauth2Token.RefreshToken),
		Expiry:       oauth2Token.Expiry,
	}
	if raw, ok := oauth2Token.Extra("id_token").(string); ok {
		t.IdToken = IdToken(raw)
	}
	if c.config.IsOIDC() && t.IdToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}
	return t, nil
}

// UserInfo fetches the raw profile document with the access token. It
// returns ErrInvalidParameter when the Config has no user info endpoint.
func (c *Client) UserInfo(ctx context.Context, accessToken AccessToken) ([]byte, error) {
	const op = "Client.UserInfo"
	if c.config.UserInfoURL == "" {
		return nil, fmt.Errorf("%s: no user info endpoint: %w", op, ErrInvalidParameter)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%s: missing access token: %w", op, ErrInvalidParameter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	hc := oauth2.NewClient(HTTPClientContext(ctx, c.httpClient), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(accessToken),
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.httpClient.Timeout

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err.Error(), ErrUserInfoFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %s: %w", op, err.Error(), ErrUserInfoFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, &ResponseError{StatusCode: resp.StatusCode, Body: body})
	}
	return body, nil
}
