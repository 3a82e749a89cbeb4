// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"time"

	"github.com/hashicorp/rplogin/jwt"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithScopes provides an optional list of scopes for: NewConfig
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithProviderCA provides an optional CA cert for: NewConfig
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithMixUpMitigation requires callbacks to carry client_id and iss values
// matching the Config, for: NewConfig
func WithMixUpMitigation() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withMixUpMitigation = true
		}
	}
}

// WithPKCE enables PKCE (S256) for: NewConfig
func WithPKCE() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPKCE = true
		}
	}
}

// WithSupportedSigningAlgs provides the accepted id_token algorithms for:
// NewConfig
func WithSupportedSigningAlgs(algs ...jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSupportedSigningAlgs = algs
		}
	}
}

// WithEndpoints provides the provider endpoints for: NewConfig. Endpoints
// left empty can be filled in with Config.Discover.
func WithEndpoints(e Endpoints) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withEndpoints = e
		}
	}
}

// WithAuthURLParams provides optional extra query parameters for: AuthURL
func WithAuthURLParams(params map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withParams = params
		}
	}
}

// WithHTTPClient provides an optional http client for: NewClient
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && c != nil {
			o.withHTTPClient = c
		}
	}
}

// WithTimeout provides an optional request timeout for: NewClient
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithKeySet provides the key set used to verify id_tokens for:
// NewIDTokenValidator. Without it the validator builds one from the Config.
func WithKeySet(ks jwt.KeySet) Option {
	return func(o interface{}) {
		if o, ok := o.(*validatorOptions); ok {
			o.withKeySet = ks
		}
	}
}

// WithNow provides an optional clock for: NewIDTokenValidator
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*validatorOptions); ok {
			o.withNow = now
		}
	}
}
