// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/sdk/id"
)

// GeneratedPasswordLength is the length of passwords generated for
// identities provisioned without one.
const GeneratedPasswordLength = 24

// Provisioner creates local identities from provider attributes.
type Provisioner struct {
	provider AccountProvider
	repo     Repository
	mappers  []AttributeMapper
	opts     options
	logger   hclog.Logger
}

// NewProvisioner creates a Provisioner. Mappers run in order and a later
// mapper overwrites the attributes of an earlier one.
//
// Supported options: WithLogger, WithReader
func NewProvisioner(provider AccountProvider, repo Repository, mappers []AttributeMapper, opt ...Option) (*Provisioner, error) {
	const op = "account.NewProvisioner"
	switch {
	case provider == nil:
		return nil, fmt.Errorf("%s: missing account provider: %w", op, ErrNilParameter)
	case repo == nil:
		return nil, fmt.Errorf("%s: missing repository: %w", op, ErrNilParameter)
	case len(mappers) == 0:
		return nil, fmt.Errorf("%s: missing attribute mappers: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return &Provisioner{
		provider: provider,
		repo:     repo,
		mappers:  append([]AttributeMapper(nil), mappers...),
		opts:     opts,
		logger:   opts.withLogger.Named("account"),
	}, nil
}

// Provision creates an active identity in realm. An empty password is
// replaced by a generated one.
func (p *Provisioner) Provision(ctx context.Context, realm string, src Source, password string) (*Identity, error) {
	const op = "Provisioner.Provision"
	attrs := Attributes{}
	for i, m := range p.mappers {
		mapped, err := m.Attributes(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s: mapper %d: %w", op, i, err)
		}
		attrs.Merge(mapped)
	}
	if password == "" {
		var err error
		if password, err = id.NewActivationCode(GeneratedPasswordLength, id.WithReader(p.opts.withReader)); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a password: %w", op, err)
		}
	}
	attrs.Set(PasswordAttribute, password)
	attrs.Set(StatusAttribute, StatusActive)

	ident, err := p.provider.ProvisionUser(ctx, p.repo, realm, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ident == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotProvisioned)
	}
	ident.Name = NormalizeName(ident.Name)
	p.logger.Info("provisioned identity", "realm", realm, "name", ident.Name)
	return ident, nil
}
