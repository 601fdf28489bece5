// Package tiktok is a client for the TikTok Open API v2. Every outbound call
// shares one retry policy and one error taxonomy, and every operation honours
// the development bypass.
package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"
)

const (
	tokenPath    = "/oauth/token/"
	revokePath   = "/oauth/revoke/"
	userInfoPath = "/user/info/"

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
	grantClientCredentials = "client_credentials"
)

var userInfoFields = []string{
	"open_id",
	"union_id",
	"avatar_url",
	"display_name",
	"follower_count",
	"following_count",
	"likes_count",
	"video_count",
}

type Options struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	BaseURL      string

	// DevelopmentTier is set for the dev, development and local tiers.
	DevelopmentTier bool

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	HTTPClient *http.Client
}

type Client struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	scopes       []string
	baseURL      string
	devMode      bool

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	httpClient *http.Client

	appTokens     *cache.Cache
	appTokenGroup singleflight.Group
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	maxAttempts := max(opts.MaxAttempts, 1)
	baseDelay := max(opts.BaseDelay, time.Millisecond)
	maxDelay := max(opts.MaxDelay, baseDelay)

	return &Client{
		clientKey:    opts.ClientKey,
		clientSecret: opts.ClientSecret,
		redirectURI:  opts.RedirectURI,
		scopes:       opts.Scopes,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		devMode:      missingCredentials(opts.ClientKey, opts.ClientSecret) || opts.DevelopmentTier,
		maxAttempts:  maxAttempts,
		baseDelay:    baseDelay,
		maxDelay:     maxDelay,
		httpClient:   httpClient,
		appTokens:    cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// DevMode reports whether the client answers with canned payloads.
func (c *Client) DevMode() bool {
	return c.devMode
}

// ExchangeCode exchanges an authorization code for user tokens. An empty
// redirectURI falls back to the configured one.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (TokenPayload, error) {
	if c.bypass("") {
		return c.devExchange(), nil
	}

	if redirectURI == "" {
		redirectURI = c.redirectURI
	}

	form := c.credentials()
	form.Set("code", code)
	form.Set("grant_type", grantAuthorizationCode)
	form.Set("redirect_uri", redirectURI)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	var tokens TokenPayload
	if err := c.call(ctx, "exchange_code", request{method: http.MethodPost, path: tokenPath, form: form}, &tokens); err != nil {
		return TokenPayload{}, err
	}

	return tokens, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPayload, error) {
	if c.bypass(refreshToken) {
		return c.devRefresh(), nil
	}

	form := c.credentials()
	form.Set("grant_type", grantRefreshToken)
	form.Set("refresh_token", refreshToken)

	var tokens TokenPayload
	if err := c.call(ctx, "refresh_token", request{method: http.MethodPost, path: tokenPath, form: form}, &tokens); err != nil {
		return TokenPayload{}, err
	}

	return tokens, nil
}

func (c *Client) RevokeToken(ctx context.Context, accessToken string) (RevokeResult, error) {
	if c.bypass(accessToken) {
		return RevokeResult{Revoked: true, Placeholder: true}, nil
	}

	form := c.credentials()
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")

	if err := c.call(ctx, "revoke_token", request{method: http.MethodPost, path: revokePath, form: form}, nil); err != nil {
		return RevokeResult{}, err
	}

	return RevokeResult{Revoked: true}, nil
}

func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	if c.bypass(accessToken) {
		return devUserInfo(), nil
	}

	query := url.Values{}
	query.Set("fields", strings.Join(userInfoFields, ","))

	var resp struct {
		Data struct {
			User UserInfo `json:"user"`
		} `json:"data"`
	}
	req := request{method: http.MethodGet, path: userInfoPath, query: query, bearer: accessToken}
	if err := c.call(ctx, "get_user_info", req, &resp); err != nil {
		return UserInfo{}, err
	}

	return resp.Data.User, nil
}

// GetClientAccessToken returns an app level token. Tokens are cached until
// shortly before they expire and concurrent misses share one provider call.
func (c *Client) GetClientAccessToken(ctx context.Context) (ClientToken, error) {
	if c.bypass("") {
		return devClientToken(), nil
	}

	if tok, ok := c.cachedAppToken(); ok {
		return tok, nil
	}

	// The shared fetch outlives any single caller; each caller only waits
	// for it as long as its own context allows.
	ch := c.appTokenGroup.DoChan(appTokenKey, func() (any, error) {
		if tok, ok := c.cachedAppToken(); ok {
			return tok, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appTokenFetchTimeout)
		defer cancel()

		form := c.credentials()
		form.Set("grant_type", grantClientCredentials)

		var tok ClientToken
		if err := c.call(fetchCtx, "get_client_access_token", request{method: http.MethodPost, path: tokenPath, form: form}, &tok); err != nil {
			return ClientToken{}, err
		}

		c.storeAppToken(tok)
		slogctx.Debug(fetchCtx, "Fetched a new app access token", "expires_in", tok.ExpiresIn)

		return tok, nil
	})

	select {
	case <-ctx.Done():
		return ClientToken{}, fmt.Errorf("get_client_access_token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return ClientToken{}, res.Err
		}

		return res.Val.(ClientToken), nil
	}
}

func (c *Client) credentials() url.Values {
	form := url.Values{}
	form.Set("client_key", c.clientKey)
	form.Set("client_secret", c.clientSecret)

	return form
}
