// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/oidc"
	sdkHttp "github.com/hashicorp/rplogin/sdk/http"
	"github.com/hashicorp/rplogin/state"
	"github.com/stretchr/testify/require"
)

const (
	testRealm       = "/acme"
	testRedirectURL = "https://rp.example.com/callback"
	testOrigURL     = "https://rp.example.com/login?realm=/acme"
)

var errTestFailure = errors.New("test failure")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: time.Now().Truncate(time.Millisecond)} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv is a Module wired to a local provider, an in-memory store and
// repository, and a recording mail gateway.
type testEnv struct {
	tp     *oidc.TestProvider
	clock  *testClock
	store  *state.MemoryStore
	repo   *account.MemoryRepository
	mailer *mail.TestGateway
	config *Config
	module *Module
}

type testEnvOptions struct {
	configure       func(*Config)
	store           state.Store
	accountProvider account.AccountProvider
	anonymousUser   string
	moduleOpts      []Option
}

func testConfig(tp *oidc.TestProvider, opt ...oidc.Option) *Config {
	opts := append([]oidc.Option{oidc.WithScopes(oidc.ScopeOpenID, "profile")}, opt...)
	return &Config{
		Realm:          testRealm,
		Provider:       tp.Config(testRedirectURL, opts...),
		CookieDomains:  []string{"rp.example.com"},
		SecureCookies:  true,
		EmailFrom:      "Login <noreply@acme.example>",
		ActivationURL:  "https://rp.example.com/activate",
		EmailAttribute: "email",
		MailTransport:  mail.TransportOptions{Host: "mx.acme.example"},
	}
}

func newTestEnv(t *testing.T, o testEnvOptions) *testEnv {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	e := &testEnv{
		tp:     oidc.StartTestProvider(t),
		clock:  newTestClock(),
		repo:   account.NewMemoryRepository(),
		mailer: mail.NewTestGateway(),
	}
	e.store = state.NewMemoryStore(state.WithNow(e.clock.Now))
	e.config = testConfig(e.tp)
	if o.configure != nil {
		o.configure(e.config)
	}

	mapper, err := account.NewJSONMapper(
		account.Rule{Path: "email", Attribute: "mail"},
		account.Rule{Path: "uid", Attribute: "uid"},
	)
	require.NoError(err)
	provider := o.accountProvider
	if provider == nil {
		provider = account.NewDefaultAccountProvider()
	}
	resolver, err := account.NewResolver(provider, e.repo, []account.AttributeMapper{mapper},
		account.WithProvisioning(e.config.AutoProvision),
		account.WithAnonymousUser(o.anonymousUser),
	)
	require.NoError(err)
	var provisioner *account.Provisioner
	if e.config.AutoProvision {
		provisioner, err = account.NewProvisioner(provider, e.repo, []account.AttributeMapper{mapper})
		require.NoError(err)
	}

	var store state.Store = e.store
	if o.store != nil {
		store = o.store
	}
	opts := append([]Option{WithNow(e.clock.Now), WithMailer(e.mailer)}, o.moduleOpts...)
	e.module, err = NewModule(ctx, e.config, store, resolver, provisioner, opts...)
	require.NoError(err)
	return e
}

// start runs the first request of a flow.
func (e *testEnv) start(t *testing.T) *Result {
	t.Helper()
	res, err := e.module.Process(context.Background(), &Request{Params: url.Values{}, OriginalURL: testOrigURL}, FlowState{})
	require.NoError(t, err)
	require.Equal(t, StatusRedirect, res.Status)
	return res
}

// authorize follows the redirect to the provider like a browser would and
// returns the callback parameters.
func (e *testEnv) authorize(t *testing.T, authURL string) url.Values {
	t.Helper()
	require := require.New(t)
	hc, err := sdkHttp.NewClient(e.tp.CACert())
	require.NoError(err)
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := hc.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)
	return loc.Query()
}

// callbackRequest builds the callback for a redirect result.
func (e *testEnv) callbackRequest(t *testing.T, redirect *Result) *Request {
	t.Helper()
	return &Request{
		Params:  e.authorize(t, redirect.RedirectURL),
		Cookies: map[string]string{CookieCSRF: testCookie(t, redirect.Cookies, CookieCSRF).Value},
	}
}

// login runs a flow up to and including its callback.
func (e *testEnv) login(t *testing.T) (*Result, error) {
	t.Helper()
	redirect := e.start(t)
	return e.module.Process(context.Background(), e.callbackRequest(t, redirect), redirect.Flow)
}

func testCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	require.FailNow(t, "missing cookie", name)
	return nil
}

func addIdentity(t *testing.T, repo *account.MemoryRepository, name string, attrs account.Attributes) {
	t.Helper()
	_, err := repo.Create(context.Background(), testRealm, name, attrs)
	require.NoError(t, err)
}

// readOnlyStore hides the Consumer implementation of a store, and can fail
// deletes.
type readOnlyStore struct {
	s          state.Store
	failDelete bool
}

func (s *readOnlyStore) Create(ctx context.Context, t *state.Token) error { return s.s.Create(ctx, t) }
func (s *readOnlyStore) Read(ctx context.Context, id string) (*state.Token, error) {
	return s.s.Read(ctx, id)
}

func (s *readOnlyStore) Delete(ctx context.Context, id string) error {
	if s.failDelete {
		return errTestFailure
	}
	return s.s.Delete(ctx, id)
}

// failingProvider can't provision anything.
type failingProvider struct {
	*account.DefaultAccountProvider
}

func (failingProvider) ProvisionUser(context.Context, account.Repository, string, account.Attributes) (*account.Identity, error) {
	return nil, errTestFailure
}

// testNonces is a nonce.Service whose redemption can be refused.
type testNonces struct {
	mu       sync.Mutex
	issued   int
	redeemed []string
	refuse   bool
}

func (n *testNonces) Get() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issued++
	return fmt.Sprintf("service-nonce-%d", n.issued), nil
}

func (n *testNonces) Validity() time.Duration { return 24 * time.Hour }

func (n *testNonces) Redeem(nonce string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refuse {
		return errTestFailure
	}
	n.redeemed = append(n.redeemed, nonce)
	return nil
}
