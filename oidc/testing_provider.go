// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/rplogin/jwt"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	josejwt "gopkg.in/square/go-jose.v2/jwt"
)

// Test provider defaults.
const (
	TestClientID     = "client1"
	TestClientSecret = "test-client-secret"
	TestAuthCode     = "abc123"
	TestSubject      = "alice@example.com"
	testKeyID        = "test-provider-key"
)

// TestProvider is a local OIDC provider for tests. It serves discovery,
// /authorize, /token, /userinfo, /certs and /logout over TLS, signs id_tokens
// with ES256, and lets a test shape each reply.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	mu                sync.Mutex
	clientID          string
	clientSecret      string
	expectedAuthCode  string
	expectedAuthNonce string
	authNonce         string
	codeChallenge     string
	replySubject      string
	replyUserinfo     map[string]interface{}
	customClaims      map[string]interface{}
	customAudience    string
	customIssuer      string
	omitIDToken       bool
	disableUserInfo   bool
	tokenErrorStatus  int
	tokenRequests     int
	userInfoRequests  int

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test ends.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		clientID:         TestClientID,
		clientSecret:     TestClientSecret,
		expectedAuthCode: TestAuthCode,
		replySubject:     TestSubject,
		replyUserinfo: map[string]interface{}{
			"sub":   TestSubject,
			"email": TestSubject,
			"name":  "Alice Doe",
		},
		t: t,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	p.caCert = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw}))
	require.NotEmpty(p.caCert)
	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Config returns a Config for the TestProvider. Any given options are
// applied after the provider's own.
func (p *TestProvider) Config(redirectURL string, opt ...Option) *Config {
	p.t.Helper()
	p.mu.Lock()
	clientID, clientSecret := p.clientID, p.clientSecret
	p.mu.Unlock()

	opts := append([]Option{
		WithEndpoints(Endpoints{
			AuthURL:     p.Addr() + "/authorize",
			TokenURL:    p.Addr() + "/token",
			UserInfoURL: p.Addr() + "/userinfo",
			JWKSURL:     p.Addr() + "/certs",
			LogoutURL:   p.Addr() + "/logout",
		}),
		WithProviderCA(p.CACert()),
		WithSupportedSigningAlgs(jwt.ES256),
	}, opt...)
	c, err := NewConfig(p.Addr(), clientID, ClientSecret(clientSecret), redirectURL, opts...)
	require.NoError(p.t, err)
	return c
}

// SetClientCreds is for configuring the client information required for the
// OIDC workflows.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code to return from /authorize and
// the allowed auth code for /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedAuthNonce configures the nonce put into issued id_tokens. Without
// it, the nonce of the last /authorize request is used.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetCodeChallenge configures the PKCE S256 challenge /token verifies. It's
// also recorded from /authorize requests.
func (p *TestProvider) SetCodeChallenge(challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codeChallenge = challenge
}

// SetSubject configures the "sub" of issued id_tokens.
func (p *TestProvider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replySubject = sub
}

// SetUserInfoReply configures the /userinfo document.
func (p *TestProvider) SetUserInfoReply(reply map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = reply
}

// SetCustomClaims lets you set claims to return in the JWT issued by the OIDC
// workflow.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures what audience value to embed in the JWT issued
// by the OIDC workflow.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// SetCustomIssuer configures the "iss" of issued id_tokens.
func (p *TestProvider) SetCustomIssuer(iss string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customIssuer = iss
}

// OmitIDTokens forces an error state where the /token endpoint does not return
// id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// SetTokenErrorStatus makes /token fail with the status. Zero restores
// normal replies.
func (p *TestProvider) SetTokenErrorStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenErrorStatus = status
}

// TokenRequests returns how many requests /token received.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// UserInfoRequests returns how many requests /userinfo received.
func (p *TestProvider) UserInfoRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userInfoRequests
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// IssueIDToken signs an id_token the way /token would, for the nonce.
func (p *TestProvider) IssueIDToken(nonce string) IdToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return IdToken(p.idTokenLocked(nonce))
}

func (p *TestProvider) idTokenLocked(nonce string) string {
	now := time.Now()
	stdClaims := josejwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		IssuedAt:  josejwt.NewNumericDate(now),
		NotBefore: josejwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    josejwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  josejwt.Audience{p.clientID},
	}
	if p.customAudience != "" {
		stdClaims.Audience = josejwt.Audience{p.customAudience}
	}
	if p.customIssuer != "" {
		stdClaims.Issuer = p.customIssuer
	}
	private := map[string]interface{}{}
	if nonce != "" {
		private["nonce"] = nonce
	}
	for k, v := range p.customClaims {
		private[k] = v
	}
	return TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, private)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	v := url.Values{}
	v.Set(ParamState, qv.Get(ParamState))
	v.Set(ParamError, errorCode)
	if errorMessage != "" {
		v.Set(ParamErrorDescription, errorMessage)
	}
	http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	_ = p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer           string   `json:"issuer"`
			AuthEndpoint     string   `json:"authorization_endpoint"`
			TokenEndpoint    string   `json:"token_endpoint"`
			JWKSURI          string   `json:"jwks_uri"`
			UserinfoEndpoint string   `json:"userinfo_endpoint,omitempty"`
			LogoutEndpoint   string   `json:"end_session_endpoint"`
			Algs             []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:           p.Addr(),
			AuthEndpoint:     p.Addr() + "/authorize",
			TokenEndpoint:    p.Addr() + "/token",
			JWKSURI:          p.Addr() + "/certs",
			UserinfoEndpoint: p.Addr() + "/userinfo",
			LogoutEndpoint:   p.Addr() + "/logout",
			Algs:             []string{string(jwt.ES256)},
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
			return
		case qv.Get(ParamState) == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case qv.Get("redirect_uri") == "":
			w.WriteHeader(http.StatusBadRequest)
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, "access_denied", "")
			return
		}
		p.authNonce = qv.Get("nonce")
		if c := qv.Get("code_challenge"); c != "" {
			p.codeChallenge = c
		}
		v := url.Values{}
		v.Set(ParamState, qv.Get(ParamState))
		v.Set(ParamCode, p.expectedAuthCode)
		v.Set(ParamClientID, p.clientID)
		v.Set(ParamIssuer, p.Addr())
		http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.tokenRequests++
		clientID, clientSecret, ok := req.BasicAuth()
		if !ok {
			clientID, clientSecret = req.FormValue("client_id"), req.FormValue("client_secret")
		}
		switch {
		case p.tokenErrorStatus != 0:
			p.writeTokenErrorResponse(w, p.tokenErrorStatus, "server_error", "forced failure")
			return
		case req.FormValue("grant_type") != "authorization_code":
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case clientID != p.clientID || (clientSecret != p.clientSecret && p.codeChallenge == ""):
			p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		}
		if p.codeChallenge != "" {
			sum := sha256.Sum256([]byte(req.FormValue("code_verifier")))
			if base64.RawURLEncoding.EncodeToString(sum[:]) != p.codeChallenge {
				p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "code_verifier mismatch")
				return
			}
		}
		nonce := p.authNonce
		if p.expectedAuthNonce != "" {
			nonce = p.expectedAuthNonce
		}
		reply := struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int    `json:"expires_in"`
			IDToken     string `json:"id_token,omitempty"`
		}{
			AccessToken: "access-" + p.expectedAuthCode,
			TokenType:   "Bearer",
			ExpiresIn:   300,
		}
		if !p.omitIDToken {
			reply.IDToken = p.idTokenLocked(nonce)
		}
		_ = p.writeJSON(w, &reply)

	case "/userinfo":
		p.userInfoRequests++
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if req.Header.Get("Authorization") != "Bearer access-"+p.expectedAuthCode {
			w.WriteHeader(http.StatusUnauthorized)
			_ = p.writeJSON(w, map[string]string{"error": "invalid_token"})
			return
		}
		_ = p.writeJSON(w, p.replyUserinfo)

	case "/logout":
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				KeyID:     testKeyID,
				Algorithm: string(jwt.ES256),
				Use:       "sig",
			},
		},
	}
}
