// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/nonce"
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

// moduleOptions is the set of available options for NewModule
type moduleOptions struct {
	withLogger          hclog.Logger
	withTokenClient     TokenClient
	withClaimsValidator ClaimsValidator
	withMailer          mail.Gateway
	withNonceService    nonce.Service
	withReader          io.Reader
	withNow             func() time.Time
}

func moduleDefaults() moduleOptions {
	return moduleOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getModuleOpts(opt ...Option) moduleOptions {
	opts := moduleDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithTokenClient replaces the default oidc.Client.
func WithTokenClient(c TokenClient) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok {
			o.withTokenClient = c
		}
	}
}

// WithClaimsValidator replaces the default oidc.IDTokenValidator.
func WithClaimsValidator(v ClaimsValidator) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok {
			o.withClaimsValidator = v
		}
	}
}

// WithMailer provides the gateway activation emails are sent through. It's
// required when passwords are prompted for.
func WithMailer(g mail.Gateway) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok {
			o.withMailer = g
		}
	}
}

// WithNonceService mints OIDC nonces from s and redeems them once the
// id_token is verified. s.Validity must cover the flow's TTL.
func WithNonceService(s nonce.Service) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok {
			o.withNonceService = s
		}
	}
}

// WithReader provides an optional randomness source for CSRF tokens and
// activation codes.
func WithReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok {
			o.withReader = r
		}
	}
}

// WithNow provides an optional clock.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*moduleOptions); ok && now != nil {
			o.withNow = now
		}
	}
}
