// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"io"

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

// options is the set of available options for the package's constructors
type options struct {
	withLogger        hclog.Logger
	withAnonymousUser string
	withProvisioning  bool
	withNameAttribute string
	withReader        io.Reader
}

func getDefaultOptions() options {
	return options{
		withLogger:        hclog.NewNullLogger(),
		withNameAttribute: DefaultNameAttribute,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithAnonymousUser makes the Resolver fall back to the named user when no
// identity matches and provisioning is disabled.
func WithAnonymousUser(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withAnonymousUser = name
		}
	}
}

// WithProvisioning tells the Resolver that unmatched identities will be
// provisioned, which disables the anonymous and dynamic user fallbacks.
func WithProvisioning(enabled bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withProvisioning = enabled
		}
	}
}

// WithNameAttribute sets the attribute holding the name of provisioned
// identities. It defaults to DefaultNameAttribute.
func WithNameAttribute(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && name != "" {
			o.withNameAttribute = name
		}
	}
}

// WithReader provides an optional randomness source for generated names and
// passwords.
func WithReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withReader = r
		}
	}
}
