// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package rplogin_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/handler"
	"github.com/hashicorp/rplogin/login"
	"github.com/hashicorp/rplogin/oidc"
	"github.com/hashicorp/rplogin/state"
)

func Example_login() {
	ctx := context.Background()

	// Describe the provider; discovery fills in its endpoints.
	pc, err := oidc.NewConfig(
		"https://your-issuer.example.com",
		"your_client_id",
		"your_client_secret",
		"https://your-rp.example.com/login",
		oidc.WithMixUpMitigation(),
	)
	if err != nil {
		// handle error
	}
	if err := pc.Discover(ctx); err != nil {
		// handle error
	}

	// Map the provider's email claim onto the "mail" attribute of local
	// accounts.
	repo := account.NewMemoryRepository()
	mapper, err := account.NewJSONMapper(account.Rule{Path: "email", Attribute: "mail", Document: account.DocumentClaims})
	if err != nil {
		// handle error
	}
	resolver, err := account.NewResolver(account.NewDefaultAccountProvider(), repo, []account.AttributeMapper{mapper})
	if err != nil {
		// handle error
	}

	m, err := login.NewModule(ctx, &login.Config{
		Realm:         "/",
		Provider:      pc,
		SecureCookies: true,
	}, state.NewMemoryStore(), resolver, nil)
	if err != nil {
		// handle error
	}

	// Seal the flow state into a cookie between requests.
	codec, err := handler.NewSessionCodec("k1", map[string][]byte{"k1": make([]byte, handler.KeySize)})
	if err != nil {
		// handle error
	}

	h, err := handler.Login(m, codec,
		func(user string, _ *login.Result, w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, "welcome %s", user)
		},
		func(message string, _ error, w http.ResponseWriter, _ *http.Request) {
			http.Error(w, message, http.StatusForbidden)
		},
		func(_ *login.Result, message string, w http.ResponseWriter, _ *http.Request) {
			// render the password or activation code form
		},
	)
	if err != nil {
		// handle error
	}
	http.Handle("/login", h)
}
