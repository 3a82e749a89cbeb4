// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"testing"

	"github.com/hashicorp/rplogin/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	r := NewRegistry()

	p, err := r.AccountProvider("Default", ProviderConfig{NameAttribute: "mail"})
	require.NoError(err)
	assert.Equal("mail", p.(*DefaultAccountProvider).nameAttribute)

	m, err := r.AttributeMapper("json", MapperConfig{Rules: []Rule{{Path: "email", Attribute: "mail"}}})
	require.NoError(err)
	assert.IsType(&JSONMapper{}, m)

	_, err = r.AttributeMapper("json", MapperConfig{})
	assert.ErrorIs(err, ErrInvalidParameter)

	_, err = r.AccountProvider("ldap", ProviderConfig{})
	assert.ErrorIs(err, ErrNotFound)
	assert.ErrorIs(err, registry.ErrNotFound)

	custom := testMapper{attrs: Attributes{"uid": {"x"}}}
	require.NoError(r.RegisterAttributeMapper("static", func(MapperConfig) (AttributeMapper, error) { return custom, nil }))
	m, err = r.AttributeMapper("STATIC", MapperConfig{})
	require.NoError(err)
	assert.Equal(custom, m)

	err = r.RegisterAttributeMapper("json", func(MapperConfig) (AttributeMapper, error) { return custom, nil })
	assert.ErrorIs(err, registry.ErrAlreadyExists)
	assert.ErrorIs(r.RegisterAccountProvider("x", nil), ErrNilParameter)
	assert.ErrorIs(r.RegisterAttributeMapper("x", nil), ErrNilParameter)
	require.NoError(r.RegisterAccountProvider("other", func(ProviderConfig) (AccountProvider, error) {
		return NewDefaultAccountProvider(), nil
	}))
}
