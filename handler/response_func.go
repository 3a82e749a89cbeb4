// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"net/http"

	"github.com/hashicorp/rplogin/login"
)

// SuccessResponseFunc is used by Login to create a http response once the
// user is logged in. Correlation and flow cookies are already set on w; the
// function decides what else the browser gets (a session, a redirect to the
// original URL, ...).
type SuccessResponseFunc func(user string, res *login.Result, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Login to create a http response when the flow
// fails. The message is localized for the user and safe to show; err is for
// logs.
type ErrorResponseFunc func(message string, err error, w http.ResponseWriter, req *http.Request)

// PromptResponseFunc is used by Login to render the form of an interactive
// state: res.State() is login.StateAwaitingPassword or
// login.StateAwaitingActivation. The message is the localized problem with
// the previous submission, or empty.
type PromptResponseFunc func(res *login.Result, message string, w http.ResponseWriter, req *http.Request)

// AbandonResponseFunc is used by Login when the flow is abandoned, so the
// host can fall back to another login method.
type AbandonResponseFunc func(w http.ResponseWriter, req *http.Request)
