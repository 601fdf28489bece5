package config

import (
	"errors"
	"fmt"
	"net/url"
)

const (
	StateModeStrict  = "strict"
	StateModeRelaxed = "relaxed"
)

var (
	ErrInvalidStateMode = errors.New("invalid oauth state mode")
	ErrInvalidRetry     = errors.New("invalid retry configuration")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidInterval  = errors.New("invalid token refresher interval")
)

// Validate checks the values that cannot be expressed through defaults.
func (c *Config) Validate() error {
	switch c.OAuth.StateMode {
	case StateModeStrict, StateModeRelaxed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStateMode, c.OAuth.StateMode)
	}

	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("%w: base delay %s, max delay %s", ErrInvalidRetry, c.Retry.BaseDelay, c.Retry.MaxDelay)
	}

	if c.TokenRefresher.RefreshInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, c.TokenRefresher.RefreshInterval)
	}

	for name, raw := range map[string]string{
		"tiktok.baseURL":     c.TikTok.BaseURL,
		"tiktok.authBaseURL": c.TikTok.AuthBaseURL,
		"tiktok.redirectURI": c.TikTok.RedirectURI,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s=%q", ErrInvalidURL, name, raw)
		}
	}

	return nil
}
