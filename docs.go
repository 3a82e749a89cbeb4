// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// rplogin provides the relying party side of an OAuth2 or OIDC
// authorization code login: CSRF state and nonce handling, mix-up
// mitigation, resolution of the upstream identity to a local account, and
// optional provisioning of new accounts with a password and an emailed
// activation code.
//
// The login package holds the state machine, handler binds it to net/http,
// and config builds both from a YAML file. cmd/rplogin is a ready to run
// server.
package rplogin
