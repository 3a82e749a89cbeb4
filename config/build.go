// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/handler"
	"github.com/hashicorp/rplogin/jwt"
	"github.com/hashicorp/rplogin/login"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/oidc"
	"github.com/hashicorp/rplogin/state"
)

// ProviderConfig builds the provider configuration, running discovery when
// it's enabled.
func (f *File) ProviderConfig(ctx context.Context) (*oidc.Config, error) {
	const op = "config.(File).ProviderConfig"
	p := f.Provider
	opts := []oidc.Option{
		oidc.WithScopes(p.Scopes...),
		oidc.WithEndpoints(oidc.Endpoints{
			AuthURL:     p.AuthURL,
			TokenURL:    p.TokenURL,
			UserInfoURL: p.UserInfoURL,
			JWKSURL:     p.JWKSURL,
			LogoutURL:   p.LogoutURL,
		}),
	}
	if p.MixUpMitigation {
		opts = append(opts, oidc.WithMixUpMitigation())
	}
	if p.PKCE {
		opts = append(opts, oidc.WithPKCE())
	}
	if len(p.SigningAlgs) > 0 {
		algs := make([]jwt.Alg, 0, len(p.SigningAlgs))
		for _, a := range p.SigningAlgs {
			algs = append(algs, jwt.Alg(a))
		}
		opts = append(opts, oidc.WithSupportedSigningAlgs(algs...))
	}
	if p.CAFile != "" {
		ca, err := os.ReadFile(f.path(p.CAFile))
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read provider CA: %w", op, err)
		}
		opts = append(opts, oidc.WithProviderCA(string(ca)))
	}

	c, err := oidc.NewConfig(p.Issuer, p.ClientID, oidc.ClientSecret(p.ClientSecret), p.RedirectURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Discover {
		if err := c.Discover(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// LoginConfig builds the login configuration for provider.
func (f *File) LoginConfig(provider *oidc.Config) *login.Config {
	l := f.Login
	c := &login.Config{
		Realm:              f.Realm,
		Provider:           provider,
		IdleTimeoutMinutes: l.IdleTimeoutMinutes,
		ProxyURL:           l.ProxyURL,
		CookieDomains:      l.CookieDomains,
		SecureCookies:      l.SecureCookies == nil || *l.SecureCookies,
		AutoProvision:      l.AutoProvision,
		PromptForPassword:  l.PromptForPassword,
		EmailAttribute:     l.EmailAttribute,
		EmailFrom:          l.EmailFrom,
		ActivationURL:      l.ActivationURL,
	}
	if f.Mail.Transport != nil {
		c.MailTransport = *f.Mail.Transport
	}
	return c
}

// Store opens the CSRF state store. The caller closes a *state.SQLStore.
func (f *File) Store(ctx context.Context, logger hclog.Logger) (state.Store, error) {
	const op = "config.(File).Store"
	switch f.State.Driver {
	case StateSQLite:
		s, err := state.OpenSQLite(ctx, f.path(f.State.Path), state.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	case StateMemory, "":
		return state.NewMemoryStore(state.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("%s: unknown driver %q: %w", op, f.State.Driver, ErrInvalidConfig)
	}
}

// Repository returns an in-memory repository seeded with the configured
// identities.
func (f *File) Repository(ctx context.Context) (*account.MemoryRepository, error) {
	const op = "config.(File).Repository"
	repo := account.NewMemoryRepository()
	for _, ident := range f.Accounts.Identities {
		if _, err := repo.Create(ctx, f.Realm, ident.Name, account.Attributes(ident.Attributes)); err != nil {
			return nil, fmt.Errorf("%s: identity %q: %w", op, ident.Name, err)
		}
	}
	return repo, nil
}

func (f *File) accounts(reg *account.Registry, logger hclog.Logger) (account.AccountProvider, []account.AttributeMapper, error) {
	const op = "config.(File).accounts"
	if reg == nil {
		return nil, nil, fmt.Errorf("%s: missing registry: %w", op, ErrNilParameter)
	}
	a := f.Accounts
	provider, err := reg.AccountProvider(a.Provider, account.ProviderConfig{NameAttribute: a.NameAttribute, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	mapper, err := reg.AttributeMapper(a.Mapper, account.MapperConfig{Rules: a.Rules, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider, []account.AttributeMapper{mapper}, nil
}

// Resolver builds the identity resolver from the plugins named in the
// configuration.
func (f *File) Resolver(reg *account.Registry, repo account.Repository, logger hclog.Logger) (*account.Resolver, error) {
	const op = "config.(File).Resolver"
	provider, mappers, err := f.accounts(reg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := account.NewResolver(provider, repo, mappers,
		account.WithProvisioning(f.Login.AutoProvision),
		account.WithAnonymousUser(f.Accounts.AnonymousUser),
		account.WithNameAttribute(f.Accounts.NameAttribute),
		account.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// Provisioner builds the provisioning engine, or returns nil when auto
// provisioning is off.
func (f *File) Provisioner(reg *account.Registry, repo account.Repository, logger hclog.Logger) (*account.Provisioner, error) {
	const op = "config.(File).Provisioner"
	if !f.Login.AutoProvision {
		return nil, nil
	}
	provider, mappers, err := f.accounts(reg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := account.NewProvisioner(provider, repo, mappers, account.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Mailer builds the mail gateway, or returns nil when no activation email
// is ever sent.
func (f *File) Mailer(reg *mail.Registry, logger hclog.Logger) (mail.Gateway, error) {
	const op = "config.(File).Mailer"
	if !f.Login.PromptForPassword {
		return nil, nil
	}
	if reg == nil {
		return nil, fmt.Errorf("%s: missing registry: %w", op, ErrNilParameter)
	}
	g, err := reg.Gateway(f.Mail.Gateway, mail.GatewayConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// SessionCodec builds the flow cookie codec. Its domain is the first cookie
// domain.
func (f *File) SessionCodec() (*handler.SessionCodec, error) {
	const op = "config.(File).SessionCodec"
	keys, err := f.Session.keys()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := []handler.Option{
		handler.WithCookieName(f.Session.CookieName),
		handler.WithSecure(f.Login.SecureCookies == nil || *f.Login.SecureCookies),
	}
	if len(f.Login.CookieDomains) > 0 {
		opts = append(opts, handler.WithDomain(f.Login.CookieDomains[0]))
	}
	c, err := handler.NewSessionCodec(f.Session.KeyID, keys, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
