// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// loginOptions is the set of available options for Login
type loginOptions struct {
	withLogger      hclog.Logger
	withAbandonFunc AbandonResponseFunc
}

func loginDefaults() loginOptions {
	return loginOptions{
		withLogger:      hclog.NewNullLogger(),
		withAbandonFunc: defaultAbandon,
	}
}

func getLoginOpts(opt ...Option) loginOptions {
	opts := loginDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// codecOptions is the set of available options for NewSessionCodec
type codecOptions struct {
	withCookieName string
	withPath       string
	withDomain     string
	withSecure     bool
	withReader     io.Reader
}

func codecDefaults() codecOptions {
	return codecOptions{
		withCookieName: DefaultCookieName,
		withPath:       "/",
		withSecure:     true,
	}
}

func getCodecOpts(opt ...Option) codecOptions {
	opts := codecDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
//
// Valid for: Login
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithAbandonFunc replaces the response written when a flow is abandoned,
// which defaults to a 401.
//
// Valid for: Login
func WithAbandonFunc(fn AbandonResponseFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok && fn != nil {
			o.withAbandonFunc = fn
		}
	}
}

// WithCookieName sets the flow cookie name.
//
// Valid for: NewSessionCodec
func WithCookieName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withCookieName = name
		}
	}
}

// WithPath sets the flow cookie path.
//
// Valid for: NewSessionCodec
func WithPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withPath = path
		}
	}
}

// WithDomain sets the flow cookie domain.
//
// Valid for: NewSessionCodec
func WithDomain(domain string) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withDomain = domain
		}
	}
}

// WithSecure sets the Secure attribute of the flow cookie. It defaults to
// true.
//
// Valid for: NewSessionCodec
func WithSecure(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withSecure = secure
		}
	}
}

// WithReader sets the source of the sealing nonces.
//
// Valid for: NewSessionCodec
func WithReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok && r != nil {
			o.withReader = r
		}
	}
}

func defaultAbandon(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
