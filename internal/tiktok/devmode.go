package tiktok

import (
	"strings"
)

const devTokenPrefix = "dev_"

var placeholderCredentials = map[string]struct{}{
	"your_client_key":    {},
	"your_client_secret": {},
}

func missingCredentials(key, secret string) bool {
	for _, v := range []string{key, secret} {
		if v == "" {
			return true
		}
		if _, ok := placeholderCredentials[v]; ok {
			return true
		}
	}

	return false
}

// bypass reports whether a call is answered with a canned payload instead of
// reaching the provider. It is the only place where this decision is made.
// token is the user token the call operates on, empty when there is none.
func (c *Client) bypass(token string) bool {
	return c.devMode || strings.HasPrefix(token, devTokenPrefix)
}

func (c *Client) devScopes() string {
	return strings.Join(c.scopes, ",")
}

func (c *Client) devExchange() TokenPayload {
	return TokenPayload{
		AccessToken:  "dev_access_token",
		RefreshToken: "dev_refresh_token",
		TokenType:    "Bearer",
		Scope:        c.devScopes(),
		ExpiresIn:    86400,
		Placeholder:  true,
	}
}

func (c *Client) devRefresh() TokenPayload {
	return TokenPayload{
		AccessToken:  "dev_access_token_refreshed",
		RefreshToken: "dev_refresh_token_rotated",
		TokenType:    "Bearer",
		Scope:        c.devScopes(),
		ExpiresIn:    86400,
		Placeholder:  true,
	}
}

func devUserInfo() UserInfo {
	return UserInfo{
		OpenID:      "dev_open_id_123",
		DisplayName: "Dev User",
		AvatarURL:   "https://example.com/dev_profile.jpg",
		Placeholder: true,
	}
}

func devClientToken() ClientToken {
	return ClientToken{
		AccessToken: "dev_client_access_token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Placeholder: true,
	}
}

func devVideoPage() VideoPage {
	return VideoPage{
		Videos:      []Video{},
		Placeholder: true,
	}
}
