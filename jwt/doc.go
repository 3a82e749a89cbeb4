// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt verifies JSON Web Token signatures and validates their claims.

A KeySet verifies signatures. Keys may come from OIDC discovery, a remote
JWKS endpoint, or a list of PEM encoded public keys. A Validator combines one
or more KeySets with the claim checks described by Expected.

Example:

	ks, err := jwt.NewJSONWebKeySet(ctx, "https://idp.example.com/keys", "")
	if err != nil {
		// handle error
	}
	v, err := jwt.NewValidator(ks)
	if err != nil {
		// handle error
	}
	claims, err := v.Validate(ctx, rawIDToken, jwt.Expected{
		Issuer:            "https://idp.example.com",
		SigningAlgorithms: []jwt.Alg{jwt.RS256},
	})
*/
package jwt
