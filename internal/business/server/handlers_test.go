package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/content"
	"github.com/openkcm/tiktok-gateway/internal/content/contentmem"
	"github.com/openkcm/tiktok-gateway/internal/middleware/requestid"
	"github.com/openkcm/tiktok-gateway/internal/oauth"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
)

const (
	stateCookieName    = "tiktok_oauth_state"
	verifierCookieName = "tiktok_pkce_verifier"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name: "tiktok-gateway",
			},
		},
		Environment: "development",
		HTTP: config.HTTPServer{
			Address:         "localhost:0",
			ShutdownTimeout: time.Second,
		},
		TikTok: config.TikTok{
			RedirectURI:   "https://gateway.example.com/auth/callback",
			Scopes:        "user.info.basic,video.list",
			BaseURL:       "https://open.tiktokapis.com/v2",
			AuthBaseURL:   "https://www.tiktok.com",
			AuthorizePath: "/v2/auth/authorize/",
		},
		OAuth: config.OAuth{
			StateTTL:           10 * time.Minute,
			StateMode:          config.StateModeStrict,
			StateCookieName:    stateCookieName,
			VerifierCookieName: verifierCookieName,
		},
		Content: config.Content{
			AllowedURLPrefixes: []string{"https://cdn.example.com/"},
			CompletionDelay:    time.Hour,
		},
	}
}

// testServices wires the handlers to a development tier TikTok client.
// api replaces the client for the direct TikTok calls when set.
func testServices(t *testing.T, cfg *config.Config, api TikTokAPI) Services {
	t.Helper()

	client := tiktok.NewClient(tiktok.Options{
		RedirectURI:     cfg.TikTok.RedirectURI,
		Scopes:          cfg.TikTok.ScopeList(),
		BaseURL:         cfg.TikTok.BaseURL,
		DevelopmentTier: true,
	})

	signer, err := oauth.NewStateSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	if api == nil {
		api = client
	}

	return Services{
		Flow:    oauth.NewFlow(cfg.TikTok, cfg.OAuth, signer, client, nil),
		TikTok:  api,
		Content: content.NewService(contentmem.NewRepository(), client, cfg.Content),
	}
}

func testHandler(t *testing.T, cfg *config.Config, api TikTokAPI) http.Handler {
	t.Helper()

	server, err := createHTTPServer(t.Context(), cfg, testServices(t, cfg, api))
	require.NoError(t, err)

	return server.Handler
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())

	return body
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// fakeTikTok fails every call with err.
type fakeTikTok struct {
	err error
}

func (f *fakeTikTok) DevMode() bool { return false }

func (f *fakeTikTok) RefreshToken(context.Context, string) (tiktok.TokenPayload, error) {
	return tiktok.TokenPayload{}, f.err
}

func (f *fakeTikTok) RevokeToken(context.Context, string) (tiktok.RevokeResult, error) {
	return tiktok.RevokeResult{}, f.err
}

func (f *fakeTikTok) GetClientAccessToken(context.Context) (tiktok.ClientToken, error) {
	return tiktok.ClientToken{}, f.err
}

func (f *fakeTikTok) GetUserInfo(context.Context, string) (tiktok.UserInfo, error) {
	return tiktok.UserInfo{}, f.err
}

func (f *fakeTikTok) ListVideos(context.Context, string, int64, int, []string) (tiktok.VideoPage, error) {
	return tiktok.VideoPage{}, f.err
}

func (f *fakeTikTok) QueryVideos(context.Context, string, []string, []string) (tiktok.VideoPage, error) {
	return tiktok.VideoPage{}, f.err
}

func TestHealth(t *testing.T) {
	h := testHandler(t, testConfig(), nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","app":"tiktok-gateway","env":"development"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestid.HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(requestid.HeaderResponseTime))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestLoginAndCallback(t *testing.T) {
	h := testHandler(t, testConfig(), nil)

	login := serve(h, httptest.NewRequest(http.MethodGet, "/auth/login?force=1&prompt=consent", nil))
	require.Equal(t, http.StatusFound, login.Code)

	location, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "www.tiktok.com", location.Host)
	assert.Equal(t, "/v2/auth/authorize/", location.Path)
	assert.Equal(t, "1", location.Query().Get("revoke"))
	assert.Equal(t, "consent", location.Query().Get("prompt"))
	assert.Equal(t, "S256", location.Query().Get("code_challenge_method"))

	stateCookie := responseCookie(login, stateCookieName)
	require.NotNil(t, stateCookie)
	assert.Equal(t, location.Query().Get("state"), stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
	assert.True(t, stateCookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, stateCookie.SameSite)
	assert.Equal(t, 600, stateCookie.MaxAge)

	verifierCookie := responseCookie(login, verifierCookieName)
	require.NotNil(t, verifierCookie)
	assert.Len(t, verifierCookie.Value, 43)

	t.Run("completes with matching cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(stateCookie.Value), nil)
		req.AddCookie(stateCookie)
		req.AddCookie(verifierCookie)

		rec := serve(h, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["persisted"])
		assert.Equal(t, "dev_open_id_123", body["user_info"].(map[string]any)["open_id"])
		assert.Equal(t, true, body["token"].(map[string]any)["placeholder"])
		assert.NotContains(t, rec.Body.String(), "dev_access_token")

		cleared := responseCookie(rec, stateCookieName)
		require.NotNil(t, cleared)
		assert.Negative(t, cleared.MaxAge)
	})

	t.Run("rejects missing cookie with the reason", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(stateCookie.Value), nil)

		rec := serve(h, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{
			"error": "invalid_state",
			"error_description": "state validation failed",
			"reason": {"missing_param": false, "missing_cookie": true, "mismatch_cookie": false, "bad_signature": false}
		}`, rec.Body.String())
		assert.NotNil(t, responseCookie(rec, stateCookieName))
	})

	t.Run("rejects a mismatched cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(stateCookie.Value), nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "0:other.signature"})

		rec := serve(h, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		reason := decodeBody(t, rec)["reason"].(map[string]any)
		assert.Equal(t, true, reason["mismatch_cookie"])
		assert.Equal(t, false, reason["bad_signature"])
	})

	t.Run("rejects missing code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state="+url.QueryEscape(stateCookie.Value), nil)
		req.AddCookie(stateCookie)

		rec := serve(h, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing_code", decodeBody(t, rec)["error"])
	})

	t.Run("reports a provider denial", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied&error_description=user+cancelled", nil)

		rec := serve(h, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"access_denied","error_description":"user cancelled"}`, rec.Body.String())
	})
}

func TestLoginWithoutPKCE(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.DisablePKCE = true
	cfg.TikTok.RedirectURI = "http://localhost:8100/auth/callback"
	h := testHandler(t, cfg, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Nil(t, responseCookie(rec, verifierCookieName))
	stateCookie := responseCookie(rec, stateCookieName)
	require.NotNil(t, stateCookie)
	assert.False(t, stateCookie.Secure)
}

func TestTokenEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		api        TikTokAPI
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "refresh returns the new tokens",
			path:       "/auth/refresh",
			body:       `{"refresh_token":"dev_refresh_token"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "refresh requires a token",
			path:       "/auth/refresh",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid_request","error_description":"refresh_token is required"}`,
		},
		{
			name:       "refresh rejects malformed json",
			path:       "/auth/refresh",
			body:       `{"refresh_token":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid_request","error_description":"malformed json body"}`,
		},
		{
			name:       "refresh maps provider failures to bad gateway",
			api:        &fakeTikTok{err: &tiktok.APIError{Kind: tiktok.KindBadStatus, StatusCode: 400, Body: "invalid_grant"}},
			path:       "/auth/refresh",
			body:       `{"refresh_token":"rft.real"}`,
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"upstream_error","error_description":"tiktok_api_error:bad_status:400:invalid_grant"}`,
		},
		{
			name:       "revoke acknowledges",
			path:       "/auth/revoke",
			body:       `{"access_token":"dev_access_token"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"revoked":true,"placeholder":true}`,
		},
		{
			name:       "client token",
			path:       "/auth/client-token",
			wantStatus: http.StatusOK,
			wantBody:   `{"access_token":"dev_client_access_token","token_type":"Bearer","expires_in":3600,"placeholder":true}`,
		},
		{
			name:       "logout",
			path:       "/auth/logout",
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"logged out"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(t, testConfig(), tt.api)

			rec := serve(h, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRefreshResponse(t *testing.T) {
	h := testHandler(t, testConfig(), nil)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"dev_refresh_token"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "dev_access_token_refreshed", body["access_token"])
	assert.Equal(t, "dev_refresh_token_rotated", body["refresh_token"])
	assert.Equal(t, "dev_access_token_refreshed", body["data"].(map[string]any)["access_token"])
}

func TestContentFlow(t *testing.T) {
	h := testHandler(t, testConfig(), nil)

	t.Run("debug lists the whitelist", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/content/debug", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"whitelist_prefixes":["https://cdn.example.com/"]}`, rec.Body.String())
	})

	t.Run("file upload creates a processing job", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "clip.mp4")
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte{0x42}, 2048))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("publish_mode", "self"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/content/upload/file", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := serve(h, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody(t, rec)
		assert.Equal(t, "upload_file_accepted", body["message"])
		job := body["job"].(map[string]any)
		assert.Equal(t, "clip.mp4", job["filename"])
		assert.InDelta(t, 1024, job["size_hint"], 0)
		assert.Equal(t, "self", job["publish_mode"])
		assert.Equal(t, "processing", job["status"])

		status := serve(h, httptest.NewRequest(http.MethodGet, "/content/status/"+job["id"].(string), nil))
		require.Equal(t, http.StatusOK, status.Code)
		assert.JSONEq(t, `{"job_id":"`+job["id"].(string)+`","status":{"state":"processing"}}`, status.Body.String())

		publish := serve(h, formRequest("/content/publish", url.Values{"job_id": {job["id"].(string)}, "privacy": {"public"}}))
		require.Equal(t, http.StatusOK, publish.Code)
		assert.JSONEq(t, `{"message":"publish_enqueued","result":{"ok":false,"reason":"not_completed"}}`, publish.Body.String())
	})

	t.Run("url upload outside the whitelist is rejected", func(t *testing.T) {
		rec := serve(h, formRequest("/content/upload/url", url.Values{"source_url": {"https://evil.example.com/a.mp4"}}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "source_url_not_whitelisted", decodeBody(t, rec)["error"])
	})

	t.Run("url upload inside the whitelist", func(t *testing.T) {
		rec := serve(h, formRequest("/content/upload/url", url.Values{"source_url": {"https://cdn.example.com/a.mp4"}}))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "upload_url_job_created", body["message"])
		assert.Equal(t, "draft", body["job"].(map[string]any)["publish_mode"])
	})

	t.Run("invalid publish mode", func(t *testing.T) {
		rec := serve(h, formRequest("/content/upload/url", url.Values{
			"source_url":   {"https://cdn.example.com/a.mp4"},
			"publish_mode": {"everyone"},
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_publish_mode", decodeBody(t, rec)["error"])
	})

	t.Run("unknown job", func(t *testing.T) {
		status := serve(h, httptest.NewRequest(http.MethodGet, "/content/status/nope", nil))
		require.Equal(t, http.StatusOK, status.Code)
		assert.JSONEq(t, `{"job_id":"nope","status":{"state":"not_found"}}`, status.Body.String())

		publish := serve(h, formRequest("/content/publish", url.Values{"job_id": {"nope"}}))
		require.Equal(t, http.StatusOK, publish.Code)
		assert.JSONEq(t, `{"message":"publish_enqueued","result":{"ok":false,"reason":"job_not_found"}}`, publish.Body.String())
	})

	t.Run("creator info falls back to the development token", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/content/creator-info", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Dev User", decodeBody(t, rec)["display_name"])
	})
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func TestDisplayProfile(t *testing.T) {
	tests := []struct {
		name       string
		api        TikTokAPI
		header     string
		query      string
		wantStatus int
		wantError  string
	}{
		{name: "bearer header", header: "Bearer dev_access_token", wantStatus: http.StatusOK},
		{name: "lower case scheme", header: "bearer dev_access_token", wantStatus: http.StatusOK},
		{name: "query fallback", query: "?token=dev_access_token", wantStatus: http.StatusOK},
		{name: "no token", wantStatus: http.StatusBadRequest, wantError: "missing_access_token"},
		{name: "basic scheme is not a token", header: "Basic dXNlcg==", wantStatus: http.StatusBadRequest, wantError: "missing_access_token"},
		{
			name:       "provider failure",
			api:        &fakeTikTok{err: &tiktok.APIError{Kind: tiktok.KindServerError, StatusCode: 503}},
			header:     "Bearer act.real",
			wantStatus: http.StatusBadGateway,
			wantError:  "upstream_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(t, testConfig(), tt.api)

			req := httptest.NewRequest(http.MethodGet, "/display/profile"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := serve(h, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, rec)["error"])
			} else {
				assert.Equal(t, "dev_open_id_123", decodeBody(t, rec)["open_id"])
			}
		})
	}
}

func TestDisplayDebug(t *testing.T) {
	cfg := testConfig()
	cfg.TikTok.ClientKey = "awkey"
	h := testHandler(t, cfg, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/display/debug?token=dev_access_token", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"env": "development",
		"client_key_set": true,
		"client_secret_set": false,
		"is_dev_mode": true,
		"token_startswith_dev": true,
		"token_prefix": "dev_acce"
	}`, rec.Body.String())
}

func TestDisplayDebugTokenPrefix(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "short token is kept", token: "dev_", want: "dev_"},
		{name: "ascii token", token: "act.1234567890", want: "act.1234"},
		{name: "multi-byte token is cut on characters", token: "äöüäöüäöüä", want: "äöüäöüäö"},
		{name: "no token", token: "", want: ""},
	}

	h := testHandler(t, testConfig(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, httptest.NewRequest(http.MethodGet, "/display/debug?token="+url.QueryEscape(tt.token), nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["token_prefix"])
		})
	}
}

func TestVideos(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		body       string
		wantStatus int
	}{
		{name: "list without bearer", method: http.MethodPost, path: "/videos/list", body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "list", method: http.MethodPost, path: "/videos/list", header: "Bearer dev_access_token", body: `{"max_count":5}`, wantStatus: http.StatusOK},
		{name: "list with empty body", method: http.MethodPost, path: "/videos/list", header: "Bearer dev_access_token", wantStatus: http.StatusOK},
		{name: "query", method: http.MethodPost, path: "/videos/query", header: "Bearer dev_access_token", body: `{"video_ids":["1"]}`, wantStatus: http.StatusOK},
		{name: "query without ids", method: http.MethodPost, path: "/videos/query", header: "Bearer dev_access_token", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "me", method: http.MethodGet, path: "/videos/me", header: "Bearer dev_access_token", wantStatus: http.StatusOK},
		{name: "me without bearer", method: http.MethodGet, path: "/videos/me", wantStatus: http.StatusUnauthorized},
	}

	h := testHandler(t, testConfig(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := serve(h, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized","error_description":"missing bearer token"}`, rec.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigins = []string{"https://app.example.com"}
	h := testHandler(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := serve(h, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://other.example.com")
	rec = serve(h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
