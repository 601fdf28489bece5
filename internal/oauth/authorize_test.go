package oauth_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/oauth"
)

func tiktokConfig() config.TikTok {
	return config.TikTok{
		ClientKey:     "client-key",
		RedirectURI:   "https://app.example.com/auth/callback",
		Scopes:        "user.info.basic, video.upload,video.publish",
		AuthBaseURL:   "https://www.tiktok.com/",
		AuthorizePath: "/v2/auth/authorize/",
	}
}

func oauthConfig(mode string) config.OAuth {
	return config.OAuth{
		StateTTL:  10 * time.Minute,
		StateMode: mode,
	}
}

func TestFlow_BuildAuthorizeURL(t *testing.T) {
	f := oauth.NewFlow(tiktokConfig(), oauthConfig(config.StateModeStrict), newSigner(t, "secret"), nil, nil)

	tests := []struct {
		name   string
		params oauth.AuthorizeParams
		want   url.Values
	}{
		{
			name:   "minimal",
			params: oauth.AuthorizeParams{State: "state-1"},
			want: url.Values{
				"client_key":    {"client-key"},
				"response_type": {"code"},
				"redirect_uri":  {"https://app.example.com/auth/callback"},
				"scope":         {"user.info.basic,video.upload,video.publish"},
				"state":         {"state-1"},
			},
		},
		{
			name: "with challenge, forced consent and prompt",
			params: oauth.AuthorizeParams{
				State:         "state-2",
				CodeChallenge: "challenge-2",
				ForceConsent:  true,
				Prompt:        "login",
			},
			want: url.Values{
				"client_key":            {"client-key"},
				"response_type":         {"code"},
				"redirect_uri":          {"https://app.example.com/auth/callback"},
				"scope":                 {"user.info.basic,video.upload,video.publish"},
				"state":                 {"state-2"},
				"code_challenge":        {"challenge-2"},
				"code_challenge_method": {"S256"},
				"revoke":                {"1"},
				"prompt":                {"login"},
			},
		},
		{
			name:   "redirect override",
			params: oauth.AuthorizeParams{State: "state-3", RedirectURI: "http://localhost:8100/auth/callback"},
			want: url.Values{
				"client_key":    {"client-key"},
				"response_type": {"code"},
				"redirect_uri":  {"http://localhost:8100/auth/callback"},
				"scope":         {"user.info.basic,video.upload,video.publish"},
				"state":         {"state-3"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := f.BuildAuthorizeURL(tt.params)
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "https", u.Scheme)
			assert.Equal(t, "www.tiktok.com", u.Host)
			assert.Equal(t, "/v2/auth/authorize/", u.Path)
			assert.Equal(t, tt.want, u.Query())
		})
	}
}

func TestFlow_StartLogin(t *testing.T) {
	signer := newSigner(t, "secret")

	t.Run("with PKCE", func(t *testing.T) {
		f := oauth.NewFlow(tiktokConfig(), oauthConfig(config.StateModeStrict), signer, nil, nil)
		require.True(t, f.UsesPKCE())

		login, err := f.StartLogin(oauth.LoginOptions{ForceConsent: true})
		require.NoError(t, err)

		assert.True(t, signer.Validate(login.State, time.Minute))
		assert.Len(t, login.Verifier, 43)

		u, err := url.Parse(login.URL)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, login.State, q.Get("state"))
		assert.Equal(t, oauth.MethodS256, q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.NotEqual(t, login.Verifier, q.Get("code_challenge"))
		assert.Equal(t, "1", q.Get("revoke"))
	})

	t.Run("without PKCE", func(t *testing.T) {
		cfg := oauthConfig(config.StateModeStrict)
		cfg.DisablePKCE = true
		f := oauth.NewFlow(tiktokConfig(), cfg, signer, nil, nil)

		login, err := f.StartLogin(oauth.LoginOptions{})
		require.NoError(t, err)

		assert.Empty(t, login.Verifier)
		u, err := url.Parse(login.URL)
		require.NoError(t, err)
		assert.False(t, u.Query().Has("code_challenge"))
		assert.False(t, u.Query().Has("revoke"))
	})

	t.Run("default state ttl", func(t *testing.T) {
		f := oauth.NewFlow(tiktokConfig(), config.OAuth{}, signer, nil, nil)
		assert.Equal(t, oauth.DefaultStateTTL, f.StateTTL())
	})
}
