// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"html/template"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/login"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Login</title>
  <style>
    body { font-family: sans-serif; margin: 4em auto; max-width: 28em; }
    .problem { color: #b00020; }
    label, input { display: block; margin-bottom: 0.5em; }
  </style>
</head>
<body>{{end}}
{{define "foot"}}</body>
</html>{{end}}

{{define "success"}}{{template "head"}}
  <h1>Signed in</h1>
  <p>You are signed in as <strong>{{.}}</strong>. You may close this window.</p>
{{template "foot"}}{{end}}

{{define "error"}}{{template "head"}}
  <h1>Login failed</h1>
  <p class="problem">{{.}}</p>
  <p><a href="/login">Try again</a></p>
{{template "foot"}}{{end}}

{{define "abandoned"}}{{template "head"}}
  <h1>Login cancelled</h1>
  <p><a href="/login">Start over</a></p>
{{template "foot"}}{{end}}

{{define "password"}}{{template "head"}}
  <h1>Choose a password</h1>
  {{with .Problem}}<p class="problem">{{.}}</p>{{end}}
  <form method="post" action="/login">
    <label>Password <input type="password" name="{{.ParamPassword}}" autocomplete="new-password" autofocus></label>
    <label>Repeat password <input type="password" name="{{.ParamPasswordConfirm}}" autocomplete="new-password"></label>
    <button type="submit">Continue</button>
    <button type="submit" name="{{.ParamCancel}}" value="true">Cancel</button>
  </form>
{{template "foot"}}{{end}}

{{define "activation"}}{{template "head"}}
  <h1>Enter your activation code</h1>
  {{with .Problem}}<p class="problem">{{.}}</p>{{end}}
  <form method="post" action="/login">
    <label>Activation code <input type="text" name="{{.ParamActivationCode}}" autocomplete="one-time-code" autofocus></label>
    <button type="submit">Activate</button>
    <button type="submit" name="{{.ParamCancel}}" value="true">Cancel</button>
  </form>
{{template "foot"}}{{end}}
`))

type promptPage struct {
	Problem              string
	ParamPassword        string
	ParamPasswordConfirm string
	ParamActivationCode  string
	ParamCancel          string
}

func render(w http.ResponseWriter, status int, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return pages.ExecuteTemplate(w, name, data)
}

func success(user string, _ *login.Result, w http.ResponseWriter, _ *http.Request) {
	_ = render(w, http.StatusOK, "success", user)
}

func failed(logger hclog.Logger) func(string, error, http.ResponseWriter, *http.Request) {
	return func(message string, err error, w http.ResponseWriter, _ *http.Request) {
		if rerr := render(w, statusOf(err), "error", message); rerr != nil {
			logger.Warn("unable to write error page", "error", rerr)
		}
	}
}

func prompt(logger hclog.Logger) func(*login.Result, string, http.ResponseWriter, *http.Request) {
	return func(res *login.Result, message string, w http.ResponseWriter, _ *http.Request) {
		name := "password"
		if res.State() == login.StateAwaitingActivation {
			name = "activation"
		}
		status := http.StatusOK
		if message != "" {
			status = http.StatusUnprocessableEntity
		}
		page := promptPage{
			Problem:              message,
			ParamPassword:        login.ParamPassword,
			ParamPasswordConfirm: login.ParamPasswordConfirm,
			ParamActivationCode:  login.ParamActivationCode,
			ParamCancel:          login.ParamCancel,
		}
		if err := render(w, status, name, page); err != nil {
			logger.Warn("unable to write prompt page", "error", err)
		}
	}
}

func abandoned(w http.ResponseWriter, _ *http.Request) {
	_ = render(w, http.StatusUnauthorized, "abandoned", nil)
}

// statusOf maps the kind of a login failure to a response status.
func statusOf(err error) int {
	switch login.KindOf(err) {
	case login.KindProtocolViolation, login.KindValidation:
		return http.StatusBadRequest
	case login.KindUpstream:
		return http.StatusBadGateway
	case login.KindUnmapped:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
