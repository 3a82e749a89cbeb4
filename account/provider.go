// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/sdk/id"
)

const (
	// DefaultNameAttribute holds the name of provisioned identities.
	DefaultNameAttribute = "uid"

	// PasswordAttribute holds the password of provisioned identities.
	PasswordAttribute = "userPassword"

	// StatusAttribute holds the account status.
	StatusAttribute = "inetUserStatus"

	// StatusActive is the StatusAttribute value of usable accounts.
	StatusActive = "Active"
)

// AccountProvider searches and provisions identities in a Repository.
type AccountProvider interface {
	// SearchUser returns the single identity matching attrs, or nil when
	// there is none.
	SearchUser(ctx context.Context, repo Repository, realm string, attrs Attributes) (*Identity, error)

	// ProvisionUser creates an identity from attrs.
	ProvisionUser(ctx context.Context, repo Repository, realm string, attrs Attributes) (*Identity, error)
}

// DefaultAccountProvider matches identities on any shared attribute value and
// names provisioned identities after their name attribute.
type DefaultAccountProvider struct {
	nameAttribute string
	opts          options
	logger        hclog.Logger
}

var _ AccountProvider = (*DefaultAccountProvider)(nil)

// NewDefaultAccountProvider creates a DefaultAccountProvider.
//
// Supported options: WithLogger, WithNameAttribute, WithReader
func NewDefaultAccountProvider(opt ...Option) *DefaultAccountProvider {
	opts := getOpts(opt...)
	return &DefaultAccountProvider{
		nameAttribute: opts.withNameAttribute,
		opts:          opts,
		logger:        opts.withLogger.Named("account"),
	}
}

// SearchUser implements AccountProvider. More than one match is treated as
// no match.
func (p *DefaultAccountProvider) SearchUser(ctx context.Context, repo Repository, realm string, attrs Attributes) (*Identity, error) {
	const op = "DefaultAccountProvider.SearchUser"
	if repo == nil {
		return nil, fmt.Errorf("%s: missing repository: %w", op, ErrNilParameter)
	}
	if len(attrs.Names()) == 0 {
		return nil, nil
	}
	found, err := repo.Search(ctx, realm, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		p.logger.Warn("more than one identity matches, ignoring all of them", "realm", realm, "matches", len(found))
		return nil, nil
	}
}

// ProvisionUser implements AccountProvider. An identity without a name
// attribute gets a generated name.
func (p *DefaultAccountProvider) ProvisionUser(ctx context.Context, repo Repository, realm string, attrs Attributes) (*Identity, error) {
	const op = "DefaultAccountProvider.ProvisionUser"
	if repo == nil {
		return nil, fmt.Errorf("%s: missing repository: %w", op, ErrNilParameter)
	}
	name := NormalizeName(attrs.First(p.nameAttribute))
	if name == "" {
		var err error
		if name, err = id.New("user", id.WithReader(p.opts.withReader)); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a name: %w", op, err)
		}
		p.logger.Debug("no name attribute, generated one", "attribute", p.nameAttribute, "name", name)
	}
	ident, err := repo.Create(ctx, realm, name, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ident, nil
}
