// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"net/http"
	"net/url"

	"golang.org/x/text/language"
)

// State is where a flow stands between two requests.
type State int

const (
	// StateStart redirects the browser to the provider.
	StateStart State = iota

	// StateAwaitingCallback validates the provider's callback and resolves
	// the identity.
	StateAwaitingCallback

	// StateAwaitingPassword captures the password of an identity about to be
	// provisioned and emails an activation code.
	StateAwaitingPassword

	// StateAwaitingActivation checks the activation code and provisions the
	// identity.
	StateAwaitingActivation
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingCallback:
		return "awaiting callback"
	case StateAwaitingPassword:
		return "awaiting password"
	case StateAwaitingActivation:
		return "awaiting activation"
	default:
		return "unknown"
	}
}

func (s State) interactive() bool {
	return s == StateAwaitingPassword || s == StateAwaitingActivation
}

// Status is the outcome of one Process call.
type Status int

const (
	// StatusRedirect sends the browser to Result.RedirectURL.
	StatusRedirect Status = iota

	// StatusContinue keeps the flow going in Result.Flow.State, prompting
	// again when Result.Problem is set.
	StatusContinue

	// StatusSucceeded binds Result.User.
	StatusSucceeded

	// StatusAbandoned ends the flow silently.
	StatusAbandoned
)

func (s Status) String() string {
	switch s {
	case StatusRedirect:
		return "redirect"
	case StatusContinue:
		return "continue"
	case StatusSucceeded:
		return "succeeded"
	case StatusAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Request parameter names.
const (
	ParamPassword        = "password"
	ParamPasswordConfirm = "password_confirm"
	ParamActivationCode  = "activation_code"
	ParamCancel          = "cancel"
)

// FlowState is everything a flow carries from one request to the next. It's
// created fresh for every flow and only ever travels between requests
// through the host's session, never through the Module.
type FlowState struct {
	State State `cbor:"1,keyasint"`

	// Password is captured before the activation code is emailed and
	// cleared once the identity is provisioned.
	Password string `cbor:"2,keyasint,omitempty"`

	// ActivationCode is the code emailed to Email.
	ActivationCode string `cbor:"3,keyasint,omitempty"`

	// Email is where the activation code was sent.
	Email string `cbor:"4,keyasint,omitempty"`

	// Profile is the pending user info response.
	Profile []byte `cbor:"5,keyasint,omitempty"`

	// Claims are the pending id_token claims as JSON.
	Claims []byte `cbor:"6,keyasint,omitempty"`
}

// Request is one browser request as seen by the Module.
type Request struct {
	// Params are the merged query and form parameters.
	Params url.Values

	// Cookies by name.
	Cookies map[string]string

	// OriginalURL is the URL the browser asked for, stored in the ORIG_URL
	// cookie.
	OriginalURL string

	// Language selects the language of emails.
	Language language.Tag
}

// NewRequest builds a Request from an http.Request. Form parameters win over
// query parameters of the same name. A malformed query or form body is a
// KindProtocolViolation.
func NewRequest(r *http.Request) (*Request, error) {
	const op = "login.NewRequest"
	if err := r.ParseForm(); err != nil {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithMsg("unable to parse request parameters"), WithWrap(err))
	}
	req := &Request{
		Params:      r.Form,
		Cookies:     map[string]string{},
		OriginalURL: r.URL.String(),
		Language:    MatchLanguage(r.Header.Get("Accept-Language")),
	}
	if req.Params == nil {
		req.Params = url.Values{}
	}
	for _, c := range r.Cookies() {
		if _, ok := req.Cookies[c.Name]; !ok {
			req.Cookies[c.Name] = c.Value
		}
	}
	return req, nil
}

// Result is the outcome of one Process call.
type Result struct {
	Status Status

	// Flow is what the host persists for the next request.
	Flow FlowState

	// RedirectURL is set for StatusRedirect.
	RedirectURL string

	// Cookies to set on the response.
	Cookies []*http.Cookie

	// User is the normalized name of the bound identity for
	// StatusSucceeded.
	User string

	// Problem explains why a prompt is shown again.
	Problem *Error
}

// State returns the state the flow continues in.
func (r *Result) State() State { return r.Flow.State }
