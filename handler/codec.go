// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/rplogin/login"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// DefaultCookieName is the cookie carrying the sealed flow state.
	DefaultCookieName = "RPLOGIN_FLOW"

	// KeySize is the length of a sealing key.
	KeySize = chacha20poly1305.KeySize

	maxCookieLen = 4096
)

// SessionCodec seals a login.FlowState into a cookie: the state is cbor
// encoded, then sealed with XChaCha20-Poly1305.
//
// The cookie value is keyID "." base64url(nonce || ciphertext). The cookie
// name, domain and path are bound as additional data. Every key in the
// codec opens cookies, only the current one seals them, which allows key
// rotation.
type SessionCodec struct {
	keyID  string
	aeads  map[string]cipher.AEAD
	name   string
	path   string
	domain string
	secure bool
	reader io.Reader
	enc    cbor.EncMode
	dec    cbor.DecMode
}

// NewSessionCodec creates a codec sealing with keys[keyID]. Keys must be
// KeySize bytes.
//
// Supported options: WithCookieName, WithPath, WithDomain, WithSecure,
// WithReader
func NewSessionCodec(keyID string, keys map[string][]byte, opt ...Option) (*SessionCodec, error) {
	const op = "handler.NewSessionCodec"
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: missing keys: %w", op, ErrInvalidParameter)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%s: key %q is not one of the keys: %w", op, keyID, ErrInvalidParameter)
	}
	opts := getCodecOpts(opt...)
	if opts.withCookieName == "" {
		return nil, fmt.Errorf("%s: missing cookie name: %w", op, ErrInvalidParameter)
	}
	c := &SessionCodec{
		keyID:  keyID,
		aeads:  make(map[string]cipher.AEAD, len(keys)),
		name:   opts.withCookieName,
		path:   opts.withPath,
		domain: opts.withDomain,
		secure: opts.withSecure,
		reader: opts.withReader,
	}
	if c.reader == nil {
		c.reader = rand.Reader
	}
	for id, k := range keys {
		if id == "" || strings.Contains(id, ".") {
			return nil, fmt.Errorf("%s: key id %q must be non-empty and contain no dot: %w", op, id, ErrInvalidParameter)
		}
		aead, err := chacha20poly1305.NewX(k)
		if err != nil {
			return nil, fmt.Errorf("%s: key %q: %w: %w", op, id, ErrInvalidParameter, err)
		}
		c.aeads[id] = aead
	}
	var err error
	if c.enc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.dec, err = (cbor.DecOptions{MaxArrayElements: 16, MaxMapPairs: 16}).DecMode(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Name returns the cookie name.
func (c *SessionCodec) Name() string { return c.name }

func (c *SessionCodec) aad() []byte {
	return []byte(c.name + ":" + c.domain + ":" + c.path)
}

// Seal returns a cookie carrying flow, valid for maxAge.
func (c *SessionCodec) Seal(flow login.FlowState, maxAge time.Duration) (*http.Cookie, error) {
	const op = "SessionCodec.Seal"
	if maxAge < time.Second {
		return nil, fmt.Errorf("%s: max age %s is too short: %w", op, maxAge, ErrInvalidParameter)
	}
	plain, err := c.enc.Marshal(flow)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode flow: %w", op, err)
	}
	aead := c.aeads[c.keyID]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(c.reader, nonce); err != nil {
		return nil, fmt.Errorf("%s: unable to read nonce: %w", op, err)
	}
	sealed := aead.Seal(nonce, nonce, plain, c.aad())
	value := c.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed)
	if len(value) > maxCookieLen {
		return nil, fmt.Errorf("%s: sealed flow is %d bytes: %w", op, len(value), ErrInvalidParameter)
	}
	return c.cookie(value, int(maxAge/time.Second)), nil
}

// Open returns the flow sealed in cookie.
func (c *SessionCodec) Open(cookie *http.Cookie) (login.FlowState, error) {
	const op = "SessionCodec.Open"
	var flow login.FlowState
	if cookie == nil {
		return flow, fmt.Errorf("%s: missing cookie: %w", op, ErrNilParameter)
	}
	if len(cookie.Value) == 0 || len(cookie.Value) > maxCookieLen {
		return flow, fmt.Errorf("%s: %w", op, ErrCookieFormat)
	}
	keyID, encoded, ok := strings.Cut(cookie.Value, ".")
	if !ok || keyID == "" || encoded == "" {
		return flow, fmt.Errorf("%s: %w", op, ErrCookieFormat)
	}
	aead, ok := c.aeads[keyID]
	if !ok {
		return flow, fmt.Errorf("%s: unknown key %q: %w", op, keyID, ErrCookieInvalid)
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return flow, fmt.Errorf("%s: %w", op, ErrCookieFormat)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return flow, fmt.Errorf("%s: %w", op, ErrCookieFormat)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, c.aad())
	if err != nil {
		return flow, fmt.Errorf("%s: %w", op, ErrCookieInvalid)
	}
	if err := c.dec.Unmarshal(plain, &flow); err != nil {
		return login.FlowState{}, fmt.Errorf("%s: %w: %w", op, ErrCookieInvalid, err)
	}
	return flow, nil
}

// Clear returns a cookie which removes the flow cookie.
func (c *SessionCodec) Clear() *http.Cookie {
	cookie := c.cookie("", -1)
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

func (c *SessionCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
