// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package config loads the YAML configuration of the rplogin server and builds
its components.

	realm: /acme
	listen: 127.0.0.1:8080
	provider:
	  issuer: https://idp.example.com
	  discover: true
	  client_id: rplogin
	  client_secret: ${RPLOGIN_CLIENT_SECRET}
	  redirect_url: https://login.acme.example/login
	  scopes: [openid, profile, email]
	  mix_up_mitigation: true
	login:
	  cookie_domains: [acme.example]
	accounts:
	  rules:
	    - path: email
	      attribute: mail
	session:
	  key_id: k1
	  keys:
	    k1: ${RPLOGIN_SESSION_KEY}

${VAR} references are expanded from the environment, which LoadEnv can
populate from .env files.
*/
package config
