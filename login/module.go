// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/nonce"
	"github.com/hashicorp/rplogin/oidc"
	"github.com/hashicorp/rplogin/state"
	"github.com/tidwall/gjson"
)

// deleteTimeout bounds a background CSRF token deletion.
const deleteTimeout = 10 * time.Second

// TokenClient exchanges authorization codes and fetches profiles.
type TokenClient interface {
	Exchange(ctx context.Context, code, verifier string) (*oidc.Token, error)
	UserInfo(ctx context.Context, accessToken oidc.AccessToken) ([]byte, error)
}

// ClaimsValidator verifies an id_token's signature, issuer and lifetime.
type ClaimsValidator interface {
	Validate(ctx context.Context, t oidc.IdToken) (*oidc.Claims, error)
}

var (
	_ TokenClient     = (*oidc.Client)(nil)
	_ ClaimsValidator = (*oidc.IDTokenValidator)(nil)
)

// Module runs login flows for one realm and one provider. It only holds
// configuration and collaborators, so a single Module serves any number of
// concurrent flows: all of a flow's mutable values live in the FlowState
// passed to and returned from Process.
type Module struct {
	config        *Config
	cookieDomains []string

	store       state.Store
	resolver    *account.Resolver
	provisioner *account.Provisioner
	client      TokenClient
	validator   ClaimsValidator
	mailer      mail.Gateway
	nonces      nonce.Service

	reader io.Reader
	now    func() time.Time
	logger hclog.Logger

	deletes sync.WaitGroup
}

// NewModule creates a Module. The provisioner may be nil unless
// c.AutoProvision is set. With an OIDC provider and no WithClaimsValidator,
// the provider's keys are looked up with ctx.
//
// Supported options: WithLogger, WithTokenClient, WithClaimsValidator,
// WithMailer, WithNonceService, WithReader, WithNow
func NewModule(ctx context.Context, c *Config, store state.Store, resolver *account.Resolver, provisioner *account.Provisioner, opt ...Option) (*Module, error) {
	const op = "login.NewModule"
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case store == nil:
		return nil, fmt.Errorf("%s: missing state store: %w", op, ErrNilParameter)
	case resolver == nil:
		return nil, fmt.Errorf("%s: missing resolver: %w", op, ErrNilParameter)
	case c.AutoProvision && provisioner == nil:
		return nil, fmt.Errorf("%s: auto provisioning requires a provisioner: %w", op, ErrNilParameter)
	case resolver.Provisioning() != c.AutoProvision:
		return nil, fmt.Errorf("%s: resolver and config disagree on provisioning: %w", op, ErrInvalidParameter)
	}
	opts := getModuleOpts(opt...)
	if c.PromptForPassword && opts.withMailer == nil {
		return nil, fmt.Errorf("%s: prompting for a password requires a mailer: %w", op, ErrNilParameter)
	}
	if n := opts.withNonceService; n != nil && n.Validity() < c.TTL() {
		return nil, fmt.Errorf("%s: nonces expire after %s, before the flow's %s: %w", op, n.Validity(), c.TTL(), ErrInvalidParameter)
	}

	m := &Module{
		config:      c,
		store:       store,
		resolver:    resolver,
		provisioner: provisioner,
		client:      opts.withTokenClient,
		validator:   opts.withClaimsValidator,
		mailer:      opts.withMailer,
		nonces:      opts.withNonceService,
		reader:      opts.withReader,
		now:         opts.withNow,
		logger:      opts.withLogger.Named("login"),
	}
	for _, d := range c.CookieDomains {
		// already validated
		domain, _ := normalizeCookieDomain(d)
		m.cookieDomains = append(m.cookieDomains, domain)
	}
	if len(m.cookieDomains) == 0 {
		m.cookieDomains = []string{""}
	}
	if m.client == nil {
		client, err := oidc.NewClient(c.Provider)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.client = client
	}
	if m.validator == nil && c.Provider.IsOIDC() {
		v, err := oidc.NewIDTokenValidator(ctx, c.Provider, oidc.WithNow(m.now))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.validator = v
	}
	return m, nil
}

// TTL is how long a flow may stay idle between two requests.
func (m *Module) TTL() time.Duration {
	return m.config.TTL()
}

// Wait blocks until background CSRF token deletions are done.
func (m *Module) Wait() {
	m.deletes.Wait()
}

// Process advances the flow by one request. Every failure which ends the
// flow is an *Error; see KindOf.
func (m *Module) Process(ctx context.Context, req *Request, flow FlowState) (*Result, error) {
	const op = "Module.Process"
	if req == nil {
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithWrap(ErrNilParameter))
	}
	if flow.State.interactive() && req.Params.Get(ParamCancel) != "" {
		m.logger.Debug("flow cancelled", "state", flow.State.String())
		return &Result{Status: StatusAbandoned}, nil
	}
	switch flow.State {
	case StateStart:
		// providers may redirect straight back without the host replaying
		// the flow's state
		if req.Params.Get(oidc.ParamCode) != "" || req.Params.Get(oidc.ParamError) != "" {
			return m.callback(ctx, req)
		}
		return m.start(ctx, req)
	case StateAwaitingCallback:
		return m.callback(ctx, req)
	case StateAwaitingPassword:
		return m.password(ctx, req, flow)
	case StateAwaitingActivation:
		return m.activate(ctx, req, flow)
	default:
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(ErrInvalidFlowState), WithMsg("state %d", flow.State))
	}
}

// start mints a CSRF token and redirects to the provider.
func (m *Module) start(ctx context.Context, req *Request) (*Result, error) {
	const op = "Module.start"
	ttl := m.config.TTL()
	opts := []state.Option{state.WithReader(m.reader), state.WithNow(m.now)}
	if m.config.Provider.IsOIDC() {
		if m.nonces != nil {
			n, err := m.nonces.Get()
			if err != nil {
				return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithWrap(err))
			}
			opts = append(opts, state.WithNonce(n))
		} else {
			opts = append(opts, state.WithGeneratedNonce())
		}
	}
	if m.config.Provider.PKCE {
		opts = append(opts, state.WithPKCE())
	}
	tok, err := state.NewToken(ttl, opts...)
	if err != nil {
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithWrap(err))
	}
	authURL, err := oidc.AuthURL(m.config.Provider, tok.State, tok.Nonce, tok.Verifier)
	if err != nil {
		return nil, NewError(KindConfiguration, KeyConfiguration, WithOp(op), WithWrap(err))
	}
	if err := m.store.Create(ctx, tok); err != nil {
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithMsg("unable to store csrf token"), WithWrap(err))
	}
	m.logger.Debug("redirecting to provider", "realm", m.config.Realm, "token_id", tok.ID)
	return &Result{
		Status:      StatusRedirect,
		Flow:        FlowState{State: StateAwaitingCallback},
		RedirectURL: authURL,
		Cookies:     m.correlationCookies(req, tok.ID, ttl),
	}, nil
}

// callback validates the provider's answer and resolves the identity.
func (m *Module) callback(ctx context.Context, req *Request) (*Result, error) {
	const op = "Module.callback"
	p := oidc.ParseCallbackParams(req.Params)
	if err := p.ProviderError(); err != nil {
		m.logger.Warn("provider returned an error", "error", err)
		return nil, NewError(KindUpstream, KeyProviderError, WithOp(op), WithWrap(err))
	}
	if p.Code == "" {
		m.logger.Debug("callback without a code, no login occurred")
		return &Result{Status: StatusContinue, Flow: FlowState{State: StateStart}}, nil
	}
	if err := oidc.ValidateAuthorizationCode(p.Code); err != nil {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(err))
	}
	if p.State == "" {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(ErrMissingState))
	}
	if err := m.config.Provider.CheckMixUp(p); err != nil {
		m.logger.Warn("mix-up mitigation rejected callback", "error", err)
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(err))
	}

	tok, err := m.consume(ctx, req.Cookies[CookieCSRF])
	switch {
	case errors.Is(err, state.ErrNotFound):
		m.logger.Debug("unknown or expired csrf token, restarting")
		return m.start(ctx, req)
	case err != nil:
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithMsg("unable to read csrf token"), WithWrap(err))
	case subtle.ConstantTimeCompare([]byte(tok.State), []byte(p.State)) != 1:
		m.logger.Debug("csrf state does not match, restarting", "token_id", tok.ID)
		return m.start(ctx, req)
	}

	t, err := m.client.Exchange(ctx, p.Code, tok.Verifier)
	if err != nil {
		m.logUpstream("code exchange failed", err)
		return nil, NewError(KindUpstream, KeyUpstreamFailure, WithOp(op), WithWrap(err))
	}

	var src account.Source
	var subject string
	if m.config.Provider.IsOIDC() {
		claims, err := m.verifyIDToken(ctx, t.IdToken, tok.Nonce)
		if err != nil {
			return nil, err
		}
		src.Claims = claims.JSON()
		subject = claims.Subject()
	}
	if m.config.Provider.UserInfoURL != "" {
		if src.Profile, err = m.client.UserInfo(ctx, t.AccessToken); err != nil {
			m.logUpstream("profile fetch failed", err)
			return nil, NewError(KindUpstream, KeyUpstreamFailure, WithOp(op), WithWrap(err))
		}
		// A userinfo document must describe the id_token's subject.
		if m.config.Provider.IsOIDC() {
			if got := gjson.GetBytes(src.Profile, "sub").String(); got != subject {
				m.logger.Warn("userinfo subject does not match the id_token", "id_token_sub", subject, "userinfo_sub", got)
				return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(ErrSubjectMismatch))
			}
		}
	}

	res, err := m.resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	res.Cookies = append(res.Cookies, m.clearCSRFCookies()...)
	return res, nil
}

// consume reads and deletes the token. Without an atomic Consumer the
// deletion runs in the background and its failure is only logged.
func (m *Module) consume(ctx context.Context, tokenID string) (*state.Token, error) {
	if tokenID == "" {
		return nil, state.ErrNotFound
	}
	if c, ok := m.store.(state.Consumer); ok {
		return c.Consume(ctx, tokenID)
	}
	tok, err := m.store.Read(ctx, tokenID)
	m.deletes.Add(1)
	go func() {
		defer m.deletes.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
		defer cancel()
		if err := m.store.Delete(dctx, tokenID); err != nil {
			m.logger.Warn("unable to delete csrf token", "token_id", tokenID, "error", err)
		}
	}()
	return tok, err
}

func (m *Module) verifyIDToken(ctx context.Context, idToken oidc.IdToken, expectedNonce string) (*oidc.Claims, error) {
	const op = "Module.verifyIDToken"
	claims, err := m.validator.Validate(ctx, idToken)
	if err != nil {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(err))
	}
	audOK := false
	for _, aud := range claims.Audience() {
		if aud == m.config.Provider.ClientID {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(ErrAudienceMismatch), WithMsg("aud %v", claims.Audience()))
	}
	if expectedNonce == "" || subtle.ConstantTimeCompare([]byte(claims.Nonce()), []byte(expectedNonce)) != 1 {
		return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(ErrNonceMismatch))
	}
	if m.nonces != nil {
		if err := m.nonces.Redeem(expectedNonce); err != nil {
			return nil, NewError(KindProtocolViolation, KeyProtocolViolation, WithOp(op), WithWrap(fmt.Errorf("%w: %w", ErrNonceReplay, err)))
		}
	}
	return claims, nil
}

// resolve binds an existing identity or starts provisioning.
func (m *Module) resolve(ctx context.Context, src account.Source) (*Result, error) {
	const op = "Module.resolve"
	res, err := m.resolver.Resolve(ctx, m.config.Realm, src)
	if err != nil {
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithWrap(err))
	}
	if res.Kind != account.ResolutionNone {
		m.logger.Info("login succeeded", "realm", m.config.Realm, "user", res.Name, "resolution", res.Kind.String())
		return &Result{Status: StatusSucceeded, User: res.Name}, nil
	}
	switch {
	case !m.config.AutoProvision:
		return nil, NewError(KindUnmapped, KeyNoUserMapped, WithOp(op), WithWrap(ErrNoUserMapped))
	case m.config.PromptForPassword:
		return &Result{
			Status: StatusContinue,
			Flow:   FlowState{State: StateAwaitingPassword, Profile: src.Profile, Claims: src.Claims},
		}, nil
	default:
		return m.provision(ctx, src, "")
	}
}

func (m *Module) provision(ctx context.Context, src account.Source, password string) (*Result, error) {
	ident, err := m.provisioner.Provision(ctx, m.config.Realm, src, password)
	if err != nil {
		m.logger.Warn("provisioning failed, abandoning flow", "realm", m.config.Realm, "error", err)
		return &Result{Status: StatusAbandoned}, nil
	}
	return &Result{Status: StatusSucceeded, User: ident.Name}, nil
}

// password captures the new password and emails an activation code.
func (m *Module) password(ctx context.Context, req *Request, flow FlowState) (*Result, error) {
	const op = "Module.password"
	pw := req.Params.Get(ParamPassword)
	if err := ValidatePassword(pw, req.Params.Get(ParamPasswordConfirm)); err != nil {
		var problem *Error
		errors.As(err, &problem)
		return &Result{Status: StatusContinue, Flow: flow, Problem: problem}, nil
	}

	to := m.emailAddress(flow)
	if to == "" {
		return nil, NewError(KindUpstream, KeyNoEmail, WithOp(op), WithWrap(ErrEmailNotFound), WithMsg("attribute %q", m.config.emailAttribute()))
	}
	code, err := newActivationCode(m.reader)
	if err != nil {
		return nil, NewError(KindInternal, KeyInternal, WithOp(op), WithWrap(err))
	}
	link, err := activationLink(m.config.ActivationURL, code)
	if err != nil {
		return nil, NewError(KindConfiguration, KeyConfiguration, WithOp(op), WithWrap(err))
	}
	msg := mail.Message{
		From:    m.config.EmailFrom,
		To:      to,
		Subject: Localize(req.Language, KeyActivationSubject),
		Body:    Localize(req.Language, KeyActivationBody, code, link),
	}
	if err := m.mailer.Send(ctx, msg, m.config.MailTransport); err != nil {
		m.logger.Error("unable to send activation email", "error", err)
		return nil, NewError(KindUpstream, KeyEmailSendFailed, WithOp(op), WithWrap(err))
	}

	next := flow
	next.State = StateAwaitingActivation
	next.Password = pw
	next.ActivationCode = code
	next.Email = to
	return &Result{Status: StatusContinue, Flow: next}, nil
}

// activate checks the activation code and provisions the identity.
func (m *Module) activate(ctx context.Context, req *Request, flow FlowState) (*Result, error) {
	submitted := strings.TrimSpace(req.Params.Get(ParamActivationCode))
	expected := strings.TrimSpace(flow.ActivationCode)
	if expected == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1 {
		return &Result{
			Status:  StatusContinue,
			Flow:    flow,
			Problem: NewError(KindValidation, KeyActivationCodeMismatch, WithOp("Module.activate"), WithWrap(ErrActivationInvalid)),
		}, nil
	}
	return m.provision(ctx, account.Source{Profile: flow.Profile, Claims: flow.Claims}, flow.Password)
}

func (m *Module) logUpstream(msg string, err error) {
	args := []interface{}{"error", err}
	var respErr *oidc.ResponseError
	if errors.As(err, &respErr) {
		args = append(args, "status", respErr.StatusCode, "body", string(respErr.Body))
	}
	m.logger.Error(msg, args...)
}
