// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"crypto/tls"

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

// options is the set of available options for NewSMTPGateway
type options struct {
	withLogger    hclog.Logger
	withTLSConfig *tls.Config
	withLocalName string
}

func getDefaultOptions() options {
	return options{
		withLogger: hclog.NewNullLogger(),
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

// WithTLSConfig provides the TLS configuration used for STARTTLS and
// implicit TLS. ServerName defaults to the transport host.
func WithTLSConfig(c *tls.Config) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withTLSConfig = c
		}
	}
}

// WithLocalName sets the name sent with EHLO.
func WithLocalName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLocalName = name
		}
	}
}
