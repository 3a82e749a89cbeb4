// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// DefaultTimeout bounds a single delivery when TransportOptions don't.
const DefaultTimeout = 30 * time.Second

// Message is a plain text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Validate checks the addresses and rejects header injection.
func (m Message) Validate() error {
	const op = "mail.(Message).Validate"
	if _, err := mail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("%s: from %q: %s: %w", op, m.From, err.Error(), ErrInvalidParameter)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%s: to %q: %s: %w", op, m.To, err.Error(), ErrInvalidParameter)
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%s: subject contains a line break: %w", op, ErrInvalidParameter)
	}
	return nil
}

// TransportOptions say how to reach the mail server.
type TransportOptions struct {
	Host     string        `yaml:"host" validate:"required,hostname|ip"`
	Port     int           `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	StartTLS bool          `yaml:"start_tls"`
	TLS      bool          `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Addr returns host:port, defaulting the port to 465 with TLS and 25
// otherwise.
func (o TransportOptions) Addr() string {
	port := o.Port
	if port == 0 {
		port = 25
		if o.TLS {
			port = 465
		}
	}
	return fmt.Sprintf("%s:%d", o.Host, port)
}

func (o TransportOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// Gateway delivers messages.
type Gateway interface {
	Send(ctx context.Context, msg Message, opts TransportOptions) error
}
