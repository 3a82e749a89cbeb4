// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package mail delivers the plain text emails of a login flow, such as
// activation codes. Gateways are named in configuration and built through a
// Registry; TestGateway records messages for tests.
package mail
