// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
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

// tokenOptions is the set of available options for NewToken and
// Token.IsExpired
type tokenOptions struct {
	withNonce          string
	withGeneratedNonce bool
	withPKCE           bool
	withReader         io.Reader
	withNow            func() time.Time
	withExpirySkew     time.Duration
}

func tokenDefaults() tokenOptions {
	return tokenOptions{
		withNow:        time.Now,
		withExpirySkew: DefaultExpirySkew,
	}
}

func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// storeOptions is the set of available options for the Store
// implementations
type storeOptions struct {
	withLogger hclog.Logger
	withNow    func() time.Time
}

func storeDefaults() storeOptions {
	return storeOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getStoreOpts(opt ...Option) storeOptions {
	opts := storeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithNonce provides an optional nonce value for a new Token, typically one
// minted by a nonce.Service.
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withNonce = nonce
		}
	}
}

// WithGeneratedNonce requests that NewToken generates a random nonce.
// It is ignored when WithNonce is also given.
func WithGeneratedNonce() Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withGeneratedNonce = true
		}
	}
}

// WithPKCE requests that NewToken generates a PKCE code verifier.
func WithPKCE() Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withPKCE = true
		}
	}
}

// WithReader provides an optional source of randomness for NewToken.
func WithReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withReader = r
		}
	}
}

// WithNow provides an optional clock, used by NewToken, Token.IsExpired
// and the Store implementations.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *tokenOptions:
			v.withNow = now
		case *storeOptions:
			v.withNow = now
		}
	}
}

// WithExpirySkew provides an optional skew for Token.IsExpired.
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withExpirySkew = d
		}
	}
}

// WithLogger provides an optional logger for a Store.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
