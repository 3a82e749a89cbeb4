// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/handler"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/oidc"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultPurgeInterval = 5 * time.Minute

	StateMemory = "memory"
	StateSQLite = "sqlite"
)

// envRef matches ${VAR}. A bare $VAR is left alone.
var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// File is the configuration file of the rplogin server.
type File struct {
	// BaseDir is the directory of the file; relative paths are resolved
	// against it.
	BaseDir string `yaml:"-"`

	Realm    string   `yaml:"realm" validate:"required,startswith=/"`
	Listen   string   `yaml:"listen" validate:"required,hostname_port"`
	Provider Provider `yaml:"provider"`
	Login    Login    `yaml:"login"`
	State    State    `yaml:"state"`
	Accounts Accounts `yaml:"accounts"`
	Mail     Mail     `yaml:"mail"`
	Session  Session  `yaml:"session"`
}

// Provider configures the OAuth2 or OIDC provider.
type Provider struct {
	Issuer       string `yaml:"issuer" validate:"omitempty,url"`
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url" validate:"required,url"`

	// Discover fills the endpoints left empty from the issuer's discovery
	// document.
	Discover    bool   `yaml:"discover"`
	AuthURL     string `yaml:"auth_url" validate:"omitempty,url"`
	TokenURL    string `yaml:"token_url" validate:"omitempty,url"`
	UserInfoURL string `yaml:"user_info_url" validate:"omitempty,url"`
	JWKSURL     string `yaml:"jwks_url" validate:"omitempty,url"`
	LogoutURL   string `yaml:"logout_url" validate:"omitempty,url"`

	Scopes          []string `yaml:"scopes" validate:"dive,required"`
	SigningAlgs     []string `yaml:"signing_algs"`
	MixUpMitigation bool     `yaml:"mix_up_mitigation"`
	PKCE            bool     `yaml:"pkce"`
	CAFile          string   `yaml:"ca_file"`

	// SingleUseNonces redeems every id_token nonce once. Nonces live in the
	// memory of the process which minted them, so the option requires the
	// memory state store.
	SingleUseNonces bool `yaml:"single_use_nonces"`
}

// Login configures the login flow.
type Login struct {
	IdleTimeoutMinutes int      `yaml:"idle_timeout_minutes" validate:"min=0"`
	ProxyURL           string   `yaml:"proxy_url" validate:"omitempty,url"`
	CookieDomains      []string `yaml:"cookie_domains" validate:"dive,required"`
	SecureCookies      *bool    `yaml:"secure_cookies"`
	AutoProvision      bool     `yaml:"auto_provision"`
	PromptForPassword  bool     `yaml:"prompt_for_password"`
	EmailAttribute     string   `yaml:"email_attribute"`
	EmailFrom          string   `yaml:"email_from"`
	ActivationURL      string   `yaml:"activation_url" validate:"omitempty,url"`
}

// State configures the CSRF state store.
type State struct {
	Driver        string        `yaml:"driver" validate:"oneof=memory sqlite"`
	Path          string        `yaml:"path" validate:"required_if=Driver sqlite"`
	PurgeInterval time.Duration `yaml:"purge_interval" validate:"min=0"`
}

// Accounts configures identity resolution.
type Accounts struct {
	Provider      string         `yaml:"provider" validate:"required"`
	Mapper        string         `yaml:"mapper" validate:"required"`
	NameAttribute string         `yaml:"name_attribute"`
	AnonymousUser string         `yaml:"anonymous_user"`
	Rules         []account.Rule `yaml:"rules" validate:"required,dive"`
	Identities    []Identity     `yaml:"identities" validate:"dive"`
}

// Identity seeds the in-memory repository.
type Identity struct {
	Name       string              `yaml:"name" validate:"required"`
	Attributes map[string][]string `yaml:"attributes"`
}

// Mail configures the activation email gateway.
type Mail struct {
	Gateway   string                 `yaml:"gateway" validate:"required"`
	Transport *mail.TransportOptions `yaml:"transport"`
}

// Session configures the sealed flow cookie. Keys are base64 encoded.
type Session struct {
	CookieName string            `yaml:"cookie_name" validate:"required"`
	KeyID      string            `yaml:"key_id" validate:"required"`
	Keys       map[string]string `yaml:"keys" validate:"required,min=1,dive,base64"`
}

// Load reads, expands, defaults and validates the configuration at path.
// ${VAR} references are replaced by environment variables.
func Load(path string) (*File, error) {
	const op = "config.Load"
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	f.BaseDir = filepath.Dir(path)
	return f, nil
}

// Parse decodes, defaults and validates a configuration document. Unknown
// fields are errors.
func Parse(b []byte) (*File, error) {
	const op = "config.Parse"
	expanded := envRef.ReplaceAllFunc(b, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	f := &File{}
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty document: %w", op, ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	f.setDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

func (f *File) setDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	def(&f.Listen, DefaultListen)
	def(&f.State.Driver, StateMemory)
	def(&f.Accounts.Provider, account.DefaultProviderName)
	def(&f.Accounts.Mapper, account.JSONMapperName)
	def(&f.Accounts.NameAttribute, account.DefaultNameAttribute)
	def(&f.Mail.Gateway, mail.SMTPGatewayName)
	def(&f.Session.CookieName, handler.DefaultCookieName)
	if len(f.Provider.Scopes) == 0 {
		f.Provider.Scopes = []string{oidc.ScopeOpenID}
	}
	if f.State.PurgeInterval == 0 {
		f.State.PurgeInterval = DefaultPurgeInterval
	}
	if f.Login.SecureCookies == nil {
		secure := true
		f.Login.SecureCookies = &secure
	}
}

// LoadEnv loads .env files into the environment. A leading ~ is the home
// directory. Variables already set are kept.
func LoadEnv(files ...string) error {
	const op = "config.LoadEnv"
	for _, file := range files {
		if strings.HasPrefix(file, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			file = strings.Replace(file, "~", home, 1)
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (f *File) path(p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(f.BaseDir, p)
}
