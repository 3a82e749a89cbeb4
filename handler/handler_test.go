// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/login"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/oidc"
	sdkHttp "github.com/hashicorp/rplogin/sdk/http"
	"github.com/hashicorp/rplogin/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRealm = "/acme"

// testServer serves Login in front of a local provider.
type testServer struct {
	tp     *oidc.TestProvider
	srv    *httptest.Server
	repo   *account.MemoryRepository
	mailer *mail.TestGateway
	store  *state.MemoryStore
	jar    http.CookieJar
	client *http.Client
}

func newTestServer(t *testing.T, configure func(*login.Config)) *testServer {
	t.Helper()
	require := require.New(t)
	ts := &testServer{
		tp:     oidc.StartTestProvider(t),
		repo:   account.NewMemoryRepository(),
		mailer: mail.NewTestGateway(),
		store:  state.NewMemoryStore(),
	}
	var h http.HandlerFunc
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h(w, r) }))
	t.Cleanup(ts.srv.Close)

	c := &login.Config{
		Realm:         testRealm,
		Provider:      ts.tp.Config(ts.srv.URL+"/login", oidc.WithScopes(oidc.ScopeOpenID, "profile")),
		EmailFrom:     "noreply@acme.example",
		ActivationURL: ts.srv.URL + "/login",
		MailTransport: mail.TransportOptions{Host: "mx.acme.example"},
	}
	if configure != nil {
		configure(c)
	}
	mapper, err := account.NewJSONMapper(
		account.Rule{Path: "email", Attribute: "mail"},
		account.Rule{Path: "uid", Attribute: "uid"},
	)
	require.NoError(err)
	mappers := []account.AttributeMapper{mapper}
	resolver, err := account.NewResolver(account.NewDefaultAccountProvider(), ts.repo, mappers, account.WithProvisioning(c.AutoProvision))
	require.NoError(err)
	var provisioner *account.Provisioner
	if c.AutoProvision {
		provisioner, err = account.NewProvisioner(account.NewDefaultAccountProvider(), ts.repo, mappers)
		require.NoError(err)
	}
	m, err := login.NewModule(context.Background(), c, ts.store, resolver, provisioner, login.WithMailer(ts.mailer))
	require.NoError(err)

	codec, err := NewSessionCodec("k1", map[string][]byte{"k1": testKey(1)}, WithSecure(false))
	require.NoError(err)
	h, err = Login(m, codec,
		func(user string, _ *login.Result, w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, "welcome %s", user)
		},
		func(message string, _ error, w http.ResponseWriter, _ *http.Request) {
			http.Error(w, message, http.StatusForbidden)
		},
		func(res *login.Result, message string, w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, "%s: %s", res.State(), message)
		},
	)
	require.NoError(err)

	ts.jar, err = cookiejar.New(nil)
	require.NoError(err)
	ts.client, err = sdkHttp.NewClient(ts.tp.CACert())
	require.NoError(err)
	ts.client.Jar = ts.jar
	return ts
}

func (ts *testServer) noRedirects() *http.Client {
	c := *ts.client
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &c
}

func (ts *testServer) flowCookie(t *testing.T) *http.Cookie {
	t.Helper()
	u, err := url.Parse(ts.srv.URL)
	require.NoError(t, err)
	for _, c := range ts.jar.Cookies(u) {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	return nil
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func (ts *testServer) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := c.Get(ts.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) post(t *testing.T, form url.Values, acceptLanguage string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLogin(t *testing.T) {
	t.Parallel()
	m, err := login.NewModule(context.Background(), &login.Config{
		Realm:    testRealm,
		Provider: oidc.StartTestProvider(t).Config("https://rp.example.com/login", oidc.WithScopes("profile")),
	}, state.NewMemoryStore(), testResolver(t), nil)
	require.NoError(t, err)
	codec, err := NewSessionCodec("k1", map[string][]byte{"k1": testKey(1)})
	require.NoError(t, err)
	sFn := func(string, *login.Result, http.ResponseWriter, *http.Request) {}
	eFn := func(string, error, http.ResponseWriter, *http.Request) {}
	pFn := func(*login.Result, string, http.ResponseWriter, *http.Request) {}

	tests := []struct {
		name  string
		m     *login.Module
		codec *SessionCodec
		sFn   SuccessResponseFunc
		eFn   ErrorResponseFunc
		pFn   PromptResponseFunc
		ok    bool
	}{
		{name: "valid", m: m, codec: codec, sFn: sFn, eFn: eFn, pFn: pFn, ok: true},
		{name: "no-module", codec: codec, sFn: sFn, eFn: eFn, pFn: pFn},
		{name: "no-codec", m: m, sFn: sFn, eFn: eFn, pFn: pFn},
		{name: "no-success", m: m, codec: codec, eFn: eFn, pFn: pFn},
		{name: "no-error", m: m, codec: codec, sFn: sFn, pFn: pFn},
		{name: "no-prompt", m: m, codec: codec, sFn: sFn, eFn: eFn},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, err := Login(tt.m, tt.codec, tt.sFn, tt.eFn, tt.pFn)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrNilParameter)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func testResolver(t *testing.T) *account.Resolver {
	t.Helper()
	mapper, err := account.NewJSONMapper(account.Rule{Path: "email", Attribute: "mail"})
	require.NoError(t, err)
	r, err := account.NewResolver(account.NewDefaultAccountProvider(), account.NewMemoryRepository(), []account.AttributeMapper{mapper})
	require.NoError(t, err)
	return r
}

func TestLogin_succeeded(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ts := newTestServer(t, nil)
	_, err := ts.repo.Create(context.Background(), testRealm, "alice", account.Attributes{"mail": {oidc.TestSubject}})
	require.NoError(t, err)

	resp := ts.get(t, ts.client, "/login")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("welcome alice", body(t, resp))
	assert.Nil(ts.flowCookie(t))
	assert.Equal(0, ts.store.Len())
	assert.Equal(1, ts.tp.TokenRequests())
}

func TestLogin_redirect(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ts := newTestServer(t, nil)

	resp := ts.get(t, ts.noRedirects(), "/login")
	resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	assert.True(strings.HasPrefix(resp.Header.Get("Location"), ts.tp.Addr()+"/authorize?"))
	require.NotNil(ts.flowCookie(t))
	assert.Equal(1, ts.store.Len())

	// no code: the flow starts over with a fresh redirect
	resp = ts.get(t, ts.noRedirects(), "/login")
	resp.Body.Close()
	assert.Equal(http.StatusFound, resp.StatusCode)
	assert.True(strings.HasPrefix(resp.Header.Get("Location"), ts.tp.Addr()+"/authorize?"))
	assert.Equal(2, ts.store.Len())
}

func TestLogin_staleCallback(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	resp := ts.get(t, ts.noRedirects(), "/login?code=abc123&state=forged")
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), ts.tp.Addr()+"/authorize?"))
	assert.Equal(t, 0, ts.tp.TokenRequests())
}

func TestLogin_unreadableFlowCookie(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	u, err := url.Parse(ts.srv.URL)
	require.NoError(t, err)
	ts.jar.SetCookies(u, []*http.Cookie{{Name: DefaultCookieName, Value: "k1.garbage", Path: "/"}})

	resp := ts.get(t, ts.noRedirects(), "/login")
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLogin_failure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	resp := ts.get(t, ts.client, "/login")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "No account is linked to this login.", body(t, resp))
	assert.Nil(t, ts.flowCookie(t))

	resp = ts.get(t, ts.client, "/login?error=access_denied")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "The identity provider refused the login.", body(t, resp))
}

func TestLogin_malformedBody(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/login", strings.NewReader("password=%zz"))
	require.NoError(err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := ts.client.Do(req)
	require.NoError(err)
	assert.Equal(http.StatusForbidden, resp.StatusCode)
	assert.Equal("The login response could not be verified.", body(t, resp))
	assert.Equal(0, ts.tp.TokenRequests())
}

func TestLogin_interactive(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ts := newTestServer(t, func(c *login.Config) {
		c.AutoProvision = true
		c.PromptForPassword = true
	})
	ts.tp.SetUserInfoReply(map[string]interface{}{"email": "new@acme.example", "uid": "newbie"})

	resp := ts.get(t, ts.client, "/login")
	require.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("awaiting password:", body(t, resp))

	resp = ts.post(t, url.Values{login.ParamPassword: {"longenough1"}, login.ParamPasswordConfirm: {"longenough2"}}, "de")
	assert.Equal("awaiting password: Die Passwörter stimmen nicht überein.", body(t, resp))

	resp = ts.post(t, url.Values{login.ParamPassword: {"longenough1"}, login.ParamPasswordConfirm: {"longenough1"}}, "")
	assert.Equal("awaiting activation:", body(t, resp))
	msg, ok := ts.mailer.Last()
	require.True(ok)
	assert.Equal("new@acme.example", msg.To)

	resp = ts.post(t, url.Values{login.ParamActivationCode: {"wrong"}}, "")
	assert.Equal("awaiting activation: The activation code is not valid.", body(t, resp))

	var code string
	for _, line := range strings.Split(msg.Body, "\n") {
		if strings.HasPrefix(line, "Your activation code is ") {
			code = strings.TrimSuffix(strings.TrimPrefix(line, "Your activation code is "), ".")
		}
	}
	require.Len(code, login.ActivationCodeLength)
	resp = ts.post(t, url.Values{login.ParamActivationCode: {code}}, "")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("welcome newbie", body(t, resp))

	ident, err := ts.repo.Get(testRealm, "newbie")
	require.NoError(err)
	assert.Equal("longenough1", ident.Attributes.First(account.PasswordAttribute))
}

func TestLogin_abandoned(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *login.Config) {
		c.AutoProvision = true
		c.PromptForPassword = true
	})
	ts.tp.SetUserInfoReply(map[string]interface{}{"email": "new@acme.example", "uid": "newbie"})

	resp := ts.get(t, ts.client, "/login")
	require.Equal(t, "awaiting password:", body(t, resp))

	resp = ts.post(t, url.Values{login.ParamCancel: {"1"}}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, ts.flowCookie(t))
}
