// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"net/http"
	"time"
)

// Correlation cookie names.
const (
	CookieProxyURL  = "PROXY_URL"
	CookieOrigURL   = "ORIG_URL"
	CookieCSRF      = "OAUTH_CSRF"
	CookieLogoutURL = "OAUTH_LOGOUT_URL"
)

// correlationCookies returns the cookies set with the redirect to the
// provider, once per cookie domain.
func (m *Module) correlationCookies(req *Request, tokenID string, ttl time.Duration) []*http.Cookie {
	values := []struct{ name, value string }{
		{CookieProxyURL, m.proxyURL()},
		{CookieOrigURL, req.OriginalURL},
		{CookieCSRF, tokenID},
	}
	if m.config.Provider.LogoutURL != "" {
		values = append(values, struct{ name, value string }{CookieLogoutURL, m.config.Provider.LogoutURL})
	}
	var cookies []*http.Cookie
	for _, domain := range m.cookieDomains {
		for _, v := range values {
			if v.value == "" {
				continue
			}
			cookies = append(cookies, m.cookie(v.name, v.value, domain, int(ttl.Seconds())))
		}
	}
	return cookies
}

// clearCSRFCookies expires the CSRF cookie once its token is consumed.
func (m *Module) clearCSRFCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(m.cookieDomains))
	for _, domain := range m.cookieDomains {
		cookies = append(cookies, m.cookie(CookieCSRF, "", domain, -1))
	}
	return cookies
}

func (m *Module) cookie(name, value, domain string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		Secure:   m.config.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Module) proxyURL() string {
	if m.config.ProxyURL != "" {
		return m.config.ProxyURL
	}
	return m.config.Provider.RedirectURL
}
