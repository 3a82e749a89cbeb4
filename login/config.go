// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"fmt"
	netmail "net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/oidc"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultIdleTimeoutMinutes bounds how long a redirect to the provider
	// stays valid.
	DefaultIdleTimeoutMinutes = 30

	// DefaultEmailAttribute is the profile path holding the address
	// activation emails are sent to.
	DefaultEmailAttribute = "email"

	// MinPasswordLength is the shortest password accepted when prompting.
	MinPasswordLength = 8

	// ActivationCodeLength is the length of emailed activation codes.
	ActivationCodeLength = 8
)

// Config configures a Module for one realm and one provider.
type Config struct {
	// Realm the identities are resolved in.
	Realm string

	// Provider is the OAuth2 or OIDC provider.
	Provider *oidc.Config

	// IdleTimeoutMinutes is how long a CSRF token lives. Zero means
	// DefaultIdleTimeoutMinutes.
	IdleTimeoutMinutes int

	// ProxyURL is the value of the PROXY_URL cookie. It defaults to the
	// provider's redirect URL.
	ProxyURL string

	// CookieDomains are the domains correlation cookies are set for. With
	// none, host only cookies are set.
	CookieDomains []string

	// SecureCookies marks correlation cookies Secure.
	SecureCookies bool

	// AutoProvision creates identities which don't match an existing one.
	AutoProvision bool

	// PromptForPassword makes provisioning interactive: a password is
	// captured and an activation code is emailed before the identity is
	// created.
	PromptForPassword bool

	// EmailAttribute is the gjson path of the email address, looked up in
	// the profile then in the id_token claims.
	EmailAttribute string

	// EmailFrom is the sender of activation emails.
	EmailFrom string

	// ActivationURL is linked from activation emails. The code is added as
	// the activation_code query parameter.
	ActivationURL string

	// MailTransport is handed to the mail gateway.
	MailTransport mail.TransportOptions
}

// TTL returns the lifetime of CSRF tokens.
func (c *Config) TTL() time.Duration {
	minutes := c.IdleTimeoutMinutes
	if minutes <= 0 {
		minutes = DefaultIdleTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (c *Config) emailAttribute() string {
	if c.EmailAttribute == "" {
		return DefaultEmailAttribute
	}
	return c.EmailAttribute
}

// Validate the configuration. Every problem is reported.
func (c *Config) Validate() error {
	const op = "login.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: missing config: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if strings.TrimSpace(c.Realm) == "" {
		result = multierror.Append(result, fmt.Errorf("realm is empty: %w", ErrInvalidParameter))
	}
	if c.Provider == nil {
		result = multierror.Append(result, fmt.Errorf("provider is missing: %w", ErrNilParameter))
	} else if err := c.Provider.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.IdleTimeoutMinutes < 0 {
		result = multierror.Append(result, fmt.Errorf("idle timeout is negative: %w", ErrInvalidParameter))
	}
	if c.ProxyURL != "" {
		if u, err := url.Parse(c.ProxyURL); err != nil || !u.IsAbs() {
			result = multierror.Append(result, fmt.Errorf("proxy URL %q is not absolute: %w", c.ProxyURL, ErrInvalidParameter))
		}
	}
	for _, d := range c.CookieDomains {
		if _, err := normalizeCookieDomain(d); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.PromptForPassword {
		if !c.AutoProvision {
			result = multierror.Append(result, fmt.Errorf("prompting for a password requires auto provisioning: %w", ErrInvalidParameter))
		}
		if _, err := netmail.ParseAddress(c.EmailFrom); err != nil {
			result = multierror.Append(result, fmt.Errorf("email from %q: %s: %w", c.EmailFrom, err.Error(), ErrInvalidParameter))
		}
		if u, err := url.Parse(c.ActivationURL); err != nil || !u.IsAbs() {
			result = multierror.Append(result, fmt.Errorf("activation URL %q is not absolute: %w", c.ActivationURL, ErrInvalidParameter))
		}
		if c.MailTransport.Host == "" {
			result = multierror.Append(result, fmt.Errorf("mail transport host is empty: %w", ErrInvalidParameter))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// normalizeCookieDomain returns the ASCII form of domain. Public suffixes,
// which browsers refuse, are rejected.
func normalizeCookieDomain(domain string) (string, error) {
	d := strings.TrimPrefix(strings.TrimSpace(domain), ".")
	if d == "" {
		return "", fmt.Errorf("cookie domain is empty: %w", ErrInvalidParameter)
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("cookie domain %q: %s: %w", domain, err.Error(), ErrInvalidParameter)
	}
	ascii = strings.ToLower(ascii)
	if suffix, _ := publicsuffix.PublicSuffix(ascii); suffix == ascii {
		return "", fmt.Errorf("cookie domain %q is a public suffix: %w", domain, ErrInvalidParameter)
	}
	return ascii, nil
}
