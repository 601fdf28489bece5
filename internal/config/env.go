package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// environment holds the raw values of the recognised environment variables.
// Zero values mean "not set" and leave the file configuration untouched.
type environment struct {
	ClientKey          string   `env:"TIKTOK_CLIENT_KEY"`
	ClientSecret       string   `env:"TIKTOK_CLIENT_SECRET"`
	RedirectURI        string   `env:"TIKTOK_REDIRECT_URI"`
	Scopes             string   `env:"TIKTOK_SCOPES"`
	BaseURL            string   `env:"TIKTOK_BASE_URL"`
	AuthBaseURL        string   `env:"TIKTOK_AUTH_BASE_URL"`
	HTTPTimeoutSeconds float64  `env:"HTTP_TIMEOUT_SECONDS"`
	MaxRetries         int      `env:"RATE_LIMIT_MAX_RETRIES"`
	BaseDelayMS        int      `env:"RATE_LIMIT_BASE_DELAY_MS"`
	MaxDelayMS         int      `env:"RATE_LIMIT_MAX_DELAY_MS"`
	EncryptionKey      string   `env:"ENCRYPTION_KEY"`
	SecretKey          string   `env:"SECRET_KEY"`
	Env                string   `env:"ENV"`
	StateMode          string   `env:"OAUTH_STATE_MODE"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:","`
	AllowedURLPrefixes []string `env:"CONTENT_ALLOWED_URL_PREFIXES" envSeparator:","`
}

// ApplyEnvironment overlays the recognised environment variables on top of
// the configuration loaded from file.
func ApplyEnvironment(cfg *Config) error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.TikTok.ClientKey, e.ClientKey)
	setString(&cfg.TikTok.RedirectURI, e.RedirectURI)
	setString(&cfg.TikTok.Scopes, e.Scopes)
	setString(&cfg.TikTok.BaseURL, e.BaseURL)
	setString(&cfg.TikTok.AuthBaseURL, e.AuthBaseURL)
	setString(&cfg.Environment, e.Env)
	setString(&cfg.OAuth.StateMode, e.StateMode)

	if e.ClientSecret != "" {
		cfg.TikTok.ClientSecret = EmbeddedSecret(e.ClientSecret)
	}
	if e.EncryptionKey != "" {
		cfg.Tokens.EncryptionKey = EmbeddedSecret(e.EncryptionKey)
	}
	if e.SecretKey != "" {
		cfg.OAuth.StateSecret = EmbeddedSecret(e.SecretKey)
	}

	if e.HTTPTimeoutSeconds > 0 {
		cfg.TikTok.HTTPTimeout = time.Duration(e.HTTPTimeoutSeconds * float64(time.Second))
	}
	if e.MaxRetries > 0 {
		cfg.Retry.MaxAttempts = e.MaxRetries
	}
	if e.BaseDelayMS > 0 {
		cfg.Retry.BaseDelay = time.Duration(e.BaseDelayMS) * time.Millisecond
	}
	if e.MaxDelayMS > 0 {
		cfg.Retry.MaxDelay = time.Duration(e.MaxDelayMS) * time.Millisecond
	}

	if origins := trimAll(e.CORSOrigins); len(origins) > 0 {
		cfg.HTTP.CORSOrigins = origins
	}
	if prefixes := trimAll(e.AllowedURLPrefixes); len(prefixes) > 0 {
		cfg.Content.AllowedURLPrefixes = prefixes
	}

	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func trimAll(items []string) []string {
	return SplitList(strings.Join(items, ","))
}
