package tiktok

import (
	"time"
)

const (
	appTokenKey = "client_credentials"
	// appTokenMargin is subtracted from the provider expiry so that a cached
	// token is never handed out right before it expires.
	appTokenMargin = time.Minute
	// appTokenFetchTimeout bounds the shared fetch, including its retries.
	appTokenFetchTimeout = time.Minute
)

func (c *Client) cachedAppToken() (ClientToken, bool) {
	v, ok := c.appTokens.Get(appTokenKey)
	if !ok {
		return ClientToken{}, false
	}

	tok, ok := v.(ClientToken)
	return tok, ok
}

func (c *Client) storeAppToken(tok ClientToken) {
	ttl := time.Duration(tok.ExpiresIn)*time.Second - appTokenMargin
	if ttl <= 0 {
		return
	}

	c.appTokens.Set(appTokenKey, tok, ttl)
}
