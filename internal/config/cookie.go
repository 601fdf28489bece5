package config

import "net/http"

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string
	Path     string
	Domain   string
	SameSite CookieSameSite
	HTTPOnly bool
	Secure   bool
	MaxAge   int
}

// HandshakeCookie returns the template used for the short-lived cookies of
// the authorization handshake. The cookie is marked Secure only when the
// callback is served over https.
func HandshakeCookie(name, domain string, maxAge int, redirectURI string) CookieTemplate {
	return CookieTemplate{
		Name:     name,
		Path:     "/",
		Domain:   domain,
		SameSite: CookieSameSiteLax,
		HTTPOnly: true,
		Secure:   IsHTTPS(redirectURI),
		MaxAge:   maxAge,
	}
}

func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	var sameSite http.SameSite
	switch ct.SameSite {
	case CookieSameSiteNone:
		sameSite = http.SameSiteNoneMode
	case CookieSameSiteLax:
		sameSite = http.SameSiteLaxMode
	case CookieSameSiteStrict:
		sameSite = http.SameSiteStrictMode
	}

	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: sameSite,
	}
}

// Expired returns a cookie that removes the template's cookie from the browser.
func (ct *CookieTemplate) Expired() *http.Cookie {
	c := ct.ToCookie("")
	c.MaxAge = -1

	return c
}
