// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package handler serves a login.Module over net/http. The flow state is
carried in a sealed cookie, so the handler can run on any number of
instances sharing only the CSRF state store and the sealing keys.

	codec, err := handler.NewSessionCodec("k1", map[string][]byte{"k1": key})
	if err != nil {
		// handle error
	}
	h, err := handler.Login(m, codec, successFn, errorFn, promptFn, handler.WithLogger(logger))
	if err != nil {
		// handle error
	}
	http.Handle("/login", h)

Prompts must submit their forms back to the same handler, using the
login.ParamPassword, login.ParamPasswordConfirm, login.ParamActivationCode
and login.ParamCancel parameters.
*/
package handler
