// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"crypto/rand"
	"io"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type options struct {
	withReader io.Reader
}

func defaults() options {
	return options{
		withReader: rand.Reader,
	}
}

func getOpts(opt ...Option) options {
	opts := defaults()
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(&opts)
	}
	return opts
}

// WithReader provides an optional source of randomness. A nil reader is
// ignored and crypto/rand.Reader is used.
func WithReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && r != nil {
			o.withReader = r
		}
	}
}
