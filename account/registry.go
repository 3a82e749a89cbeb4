// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/internal/registry"
)

const (
	// DefaultProviderName is the registered name of the DefaultAccountProvider.
	DefaultProviderName = "default"

	// JSONMapperName is the registered name of the JSONMapper.
	JSONMapperName = "json"
)

// ProviderConfig is handed to AccountProviderFactory.
type ProviderConfig struct {
	NameAttribute string
	Logger        hclog.Logger
}

// MapperConfig is handed to AttributeMapperFactory.
type MapperConfig struct {
	Rules  []Rule
	Logger hclog.Logger
}

// AccountProviderFactory builds an AccountProvider.
type AccountProviderFactory func(ProviderConfig) (AccountProvider, error)

// AttributeMapperFactory builds an AttributeMapper.
type AttributeMapperFactory func(MapperConfig) (AttributeMapper, error)

// Registry resolves the account providers and attribute mappers named in
// configuration.
type Registry struct {
	providers *registry.Registry[AccountProviderFactory]
	mappers   *registry.Registry[AttributeMapperFactory]
}

// NewRegistry returns a Registry with the "default" provider and the "json"
// mapper registered.
func NewRegistry() *Registry {
	r := &Registry{
		providers: registry.New[AccountProviderFactory]("account provider"),
		mappers:   registry.New[AttributeMapperFactory]("attribute mapper"),
	}
	_ = r.providers.Register(DefaultProviderName, func(c ProviderConfig) (AccountProvider, error) {
		return NewDefaultAccountProvider(WithNameAttribute(c.NameAttribute), WithLogger(c.Logger)), nil
	})
	_ = r.mappers.Register(JSONMapperName, func(c MapperConfig) (AttributeMapper, error) {
		return NewJSONMapper(c.Rules...)
	})
	return r
}

// RegisterAccountProvider adds a named AccountProviderFactory.
func (r *Registry) RegisterAccountProvider(name string, f AccountProviderFactory) error {
	const op = "account.(Registry).RegisterAccountProvider"
	if f == nil {
		return fmt.Errorf("%s: missing factory: %w", op, ErrNilParameter)
	}
	if err := r.providers.Register(name, f); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RegisterAttributeMapper adds a named AttributeMapperFactory.
func (r *Registry) RegisterAttributeMapper(name string, f AttributeMapperFactory) error {
	const op = "account.(Registry).RegisterAttributeMapper"
	if f == nil {
		return fmt.Errorf("%s: missing factory: %w", op, ErrNilParameter)
	}
	if err := r.mappers.Register(name, f); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AccountProvider builds the named provider.
func (r *Registry) AccountProvider(name string, c ProviderConfig) (AccountProvider, error) {
	const op = "account.(Registry).AccountProvider"
	f, err := r.providers.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	p, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// AttributeMapper builds the named mapper.
func (r *Registry) AttributeMapper(name string, c MapperConfig) (AttributeMapper, error) {
	const op = "account.(Registry).AttributeMapper"
	f, err := r.mappers.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	m, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}
