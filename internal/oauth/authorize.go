package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

// scopeDelimiter joins scopes in the authorize request. TikTok v2 expects a
// comma separated list.
const scopeDelimiter = ","

type AuthorizeParams struct {
	State         string
	CodeChallenge string
	// RedirectURI overrides the configured callback when set.
	RedirectURI string
	// ForceConsent asks the provider to show the consent screen again.
	ForceConsent bool
	Prompt       string
}

// BuildAuthorizeURL returns the provider URL the browser is sent to.
func (f *Flow) BuildAuthorizeURL(p AuthorizeParams) (string, error) {
	u, err := url.Parse(f.authorizeEndpoint)
	if err != nil {
		return "", fmt.Errorf("parsing authorize endpoint: %w", err)
	}

	redirectURI := p.RedirectURI
	if redirectURI == "" {
		redirectURI = f.redirectURI
	}

	q := u.Query()
	q.Set("client_key", f.clientKey)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(f.scopes, scopeDelimiter))
	q.Set("state", p.State)
	if p.CodeChallenge != "" {
		q.Set("code_challenge", p.CodeChallenge)
		q.Set("code_challenge_method", MethodS256)
	}
	if p.ForceConsent {
		q.Set("revoke", "1")
	}
	if p.Prompt != "" {
		q.Set("prompt", p.Prompt)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}
