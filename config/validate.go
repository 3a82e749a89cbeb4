// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/rplogin/handler"
	"github.com/hashicorp/rplogin/jwt"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the struct tags, then the rules spanning several fields.
// Every problem is reported.
func (f *File) Validate() error {
	const op = "config.(File).Validate"
	if f == nil {
		return fmt.Errorf("%s: missing config: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%s: %w", op, err)
		}
		for _, fe := range fieldErrs {
			result = multierror.Append(result, fmt.Errorf("%s: failed %q validation: %w", strings.TrimPrefix(fe.Namespace(), "File."), fe.Tag(), ErrInvalidConfig))
		}
	}

	p := f.Provider
	if !p.Discover && (p.AuthURL == "" || p.TokenURL == "") {
		result = multierror.Append(result, fmt.Errorf("provider: auth_url and token_url are required without discovery: %w", ErrInvalidConfig))
	}
	if p.Discover && p.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("provider: discovery requires an issuer: %w", ErrInvalidConfig))
	}
	if p.ClientSecret == "" && !p.PKCE {
		result = multierror.Append(result, fmt.Errorf("provider: client_secret is required without pkce: %w", ErrInvalidConfig))
	}
	for _, alg := range p.SigningAlgs {
		if err := jwt.SupportedSigningAlgorithm(jwt.Alg(alg)); err != nil {
			result = multierror.Append(result, fmt.Errorf("provider: signing_algs: %w: %w", ErrInvalidConfig, err))
		}
	}

	if p.SingleUseNonces && f.State.Driver == StateSQLite {
		result = multierror.Append(result, fmt.Errorf("provider: single_use_nonces are redeemable only by the minting process and cannot be used with a shared sqlite state store: %w", ErrInvalidConfig))
	}

	l := f.Login
	if l.PromptForPassword {
		if !l.AutoProvision {
			result = multierror.Append(result, fmt.Errorf("login: prompt_for_password requires auto_provision: %w", ErrInvalidConfig))
		}
		if l.EmailFrom == "" || l.ActivationURL == "" {
			result = multierror.Append(result, fmt.Errorf("login: prompt_for_password requires email_from and activation_url: %w", ErrInvalidConfig))
		}
		if f.Mail.Transport == nil {
			result = multierror.Append(result, fmt.Errorf("mail: prompt_for_password requires a transport: %w", ErrInvalidConfig))
		}
	}

	s := f.Session
	if _, ok := s.Keys[s.KeyID]; s.KeyID != "" && !ok {
		result = multierror.Append(result, fmt.Errorf("session: key_id %q is not one of the keys: %w", s.KeyID, ErrInvalidConfig))
	}
	for id, k := range s.Keys {
		b, err := base64.StdEncoding.DecodeString(k)
		if err == nil && len(b) != handler.KeySize {
			result = multierror.Append(result, fmt.Errorf("session: key %q is %d bytes, not %d: %w", id, len(b), handler.KeySize, ErrInvalidConfig))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s Session) keys() (map[string][]byte, error) {
	const op = "config.(Session).keys"
	keys := make(map[string][]byte, len(s.Keys))
	for id, k := range s.Keys {
		b, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("%s: key %q: %w: %w", op, id, ErrInvalidConfig, err)
		}
		keys[id] = b
	}
	return keys, nil
}
