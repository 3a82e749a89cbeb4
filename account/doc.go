// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package account resolves the identity a provider vouched for to a local
account, and provisions one when there's none.

AttributeMappers turn the user info response and id_token claims into
Attributes. A Resolver hands them to an AccountProvider which searches a
Repository. A Provisioner merges the mappers' output, adds a password and an
active status and asks the AccountProvider to create the identity.

Providers and mappers are named in configuration and built through a
Registry:

	reg := account.NewRegistry()
	mapper, err := reg.AttributeMapper("json", account.MapperConfig{
		Rules: []account.Rule{
			{Path: "email", Attribute: "mail"},
			{Path: "preferred_username", Attribute: "uid"},
		},
	})
	if err != nil {
		// handle error
	}
	provider, err := reg.AccountProvider("default", account.ProviderConfig{})
	if err != nil {
		// handle error
	}
	r, err := account.NewResolver(provider, account.NewMemoryRepository(), []account.AttributeMapper{mapper})
	if err != nil {
		// handle error
	}
	res, err := r.Resolve(ctx, "/acme", account.Source{Profile: body})
*/
package account
