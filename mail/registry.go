// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/internal/registry"
)

// SMTPGatewayName is the registered name of the SMTPGateway.
const SMTPGatewayName = "smtp"

// GatewayConfig is handed to a GatewayFactory.
type GatewayConfig struct {
	Logger hclog.Logger
}

// GatewayFactory builds a Gateway.
type GatewayFactory func(GatewayConfig) (Gateway, error)

// Registry resolves the gateway named in configuration.
type Registry struct {
	gateways *registry.Registry[GatewayFactory]
}

// NewRegistry returns a Registry with the "smtp" gateway registered.
func NewRegistry() *Registry {
	r := &Registry{gateways: registry.New[GatewayFactory]("mail gateway")}
	_ = r.gateways.Register(SMTPGatewayName, func(c GatewayConfig) (Gateway, error) {
		return NewSMTPGateway(WithLogger(c.Logger)), nil
	})
	return r
}

// Register adds a named GatewayFactory.
func (r *Registry) Register(name string, f GatewayFactory) error {
	const op = "mail.(Registry).Register"
	if f == nil {
		return fmt.Errorf("%s: missing factory: %w", op, ErrNilParameter)
	}
	if err := r.gateways.Register(name, f); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Gateway builds the named gateway.
func (r *Registry) Gateway(name string, c GatewayConfig) (Gateway, error) {
	const op = "mail.(Registry).Gateway"
	f, err := r.gateways.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	g, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}
