// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidFlowState  = errors.New("invalid flow state")
	ErrMissingState      = errors.New("missing state parameter")
	ErrAudienceMismatch  = errors.New("id_token audience does not match")
	ErrNonceMismatch     = errors.New("id_token nonce does not match")
	ErrSubjectMismatch   = errors.New("userinfo subject does not match the id_token")
	ErrNonceReplay       = errors.New("nonce already redeemed")
	ErrNoUserMapped      = errors.New("no user mapped")
	ErrEmailNotFound     = errors.New("no email address")
	ErrPasswordEmpty     = errors.New("password is empty")
	ErrPasswordTooShort  = errors.New("password is too short")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrActivationInvalid = errors.New("activation code does not match")
)

// Kind classifies failures so a caller can tell a silent restart from a
// loud failure without inspecting the wrapped errors.
type Kind int

// KindStaleState and KindProvisioning name categories only: Process restarts
// the flow on stale CSRF state and abandons it when provisioning fails, so
// neither is returned as an error.
const (
	KindInternal Kind = iota
	KindProtocolViolation
	KindStaleState
	KindUpstream
	KindValidation
	KindProvisioning
	KindConfiguration
	KindUnmapped
)

func (k Kind) String() string {
	switch k {
	case KindProtocolViolation:
		return "protocol violation"
	case KindStaleState:
		return "stale state"
	case KindUpstream:
		return "upstream failure"
	case KindValidation:
		return "validation failure"
	case KindProvisioning:
		return "provisioning failure"
	case KindConfiguration:
		return "configuration error"
	case KindUnmapped:
		return "unmapped identity"
	default:
		return "internal error"
	}
}

// Message keys name the localized text shown to the end user.
const (
	KeyInternal               = "internalError"
	KeyConfiguration          = "configurationError"
	KeyProtocolViolation      = "protocolViolation"
	KeyProviderError          = "providerError"
	KeyUpstreamFailure        = "upstreamFailure"
	KeyNoUserMapped           = "noUserMapped"
	KeyNoEmail                = "noEmailAddress"
	KeyEmailSendFailed        = "emailSendFailed"
	KeyPasswordEmpty          = "passwordEmpty"
	KeyPasswordTooShort       = "passwordTooShort"
	KeyPasswordMismatch       = "passwordMismatch"
	KeyActivationCodeMismatch = "activationCodeMismatch"
)

// Error is the single failure type Module returns. Key is safe to show to
// the end user once localized; Msg and Wrapped are for logs only.
type Error struct {
	Kind    Kind
	Op      string
	Key     string
	Msg     string
	Wrapped error
}

var _ error = (*Error)(nil)

// errorOptions is the set of available options for NewError
type errorOptions struct {
	withOp   string
	withMsg  string
	withWrap error
}

func getErrorOpts(opt ...Option) errorOptions {
	opts := errorOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithOp sets the operation which failed.
func WithOp(op string) Option {
	return func(o interface{}) {
		if o, ok := o.(*errorOptions); ok {
			o.withOp = op
		}
	}
}

// WithMsg sets a diagnostic message.
func WithMsg(format string, args ...interface{}) Option {
	return func(o interface{}) {
		if o, ok := o.(*errorOptions); ok {
			o.withMsg = fmt.Sprintf(format, args...)
		}
	}
}

// WithWrap sets the underlying error.
func WithWrap(err error) Option {
	return func(o interface{}) {
		if o, ok := o.(*errorOptions); ok {
			o.withWrap = err
		}
	}
}

// NewError creates an Error.
//
// Supported options: WithOp, WithMsg, WithWrap
func NewError(k Kind, key string, opt ...Option) *Error {
	opts := getErrorOpts(opt...)
	return &Error{
		Kind:    k,
		Op:      opts.withOp,
		Key:     key,
		Msg:     opts.withMsg,
		Wrapped: opts.withWrap,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.Wrapped }

// KindOf returns the Kind of the first Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// KeyOf returns the message key of the first Error in err's chain, or
// KeyInternal.
func KeyOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Key != "" {
		return e.Key
	}
	return KeyInternal
}
