// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/rplogin/sdk/id"
	"github.com/tidwall/gjson"
)

// ValidatePassword checks a new password against its confirmation. The
// returned *Error has KindValidation and a Key naming the rule broken.
func ValidatePassword(password, confirmation string) error {
	const op = "login.ValidatePassword"
	switch {
	case password == "":
		return NewError(KindValidation, KeyPasswordEmpty, WithOp(op), WithWrap(ErrPasswordEmpty))
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return NewError(KindValidation, KeyPasswordTooShort, WithOp(op), WithWrap(ErrPasswordTooShort))
	case password != confirmation:
		return NewError(KindValidation, KeyPasswordMismatch, WithOp(op), WithWrap(ErrPasswordMismatch))
	}
	return nil
}

func newActivationCode(r io.Reader) (string, error) {
	return id.NewActivationCode(ActivationCodeLength, id.WithReader(r))
}

func activationLink(base, code string) (string, error) {
	const op = "login.activationLink"
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	q := u.Query()
	q.Set(ParamActivationCode, code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// emailAddress finds the activation email address in the pending profile,
// then in the pending claims.
func (m *Module) emailAddress(flow FlowState) string {
	path := m.config.emailAttribute()
	for _, doc := range [][]byte{flow.Profile, flow.Claims} {
		if len(doc) == 0 {
			continue
		}
		res := gjson.GetBytes(doc, path)
		if res.IsArray() {
			res = res.Get("0")
		}
		if v := strings.TrimSpace(res.String()); v != "" {
			return v
		}
	}
	return ""
}
