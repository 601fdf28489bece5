// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"strings"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	// Environment is the deployment tier. The tiers dev, development and
	// local make the TikTok client answer with canned payloads.
	Environment string `yaml:"environment" default:"production"`

	HTTP HTTPServer `yaml:"http"`

	Database       Database       `yaml:"database"`
	ValKey         ValKey         `yaml:"valkey"`
	Migrate        Migrate        `yaml:"migrate"`
	TikTok         TikTok         `yaml:"tiktok"`
	Retry          Retry          `yaml:"retry"`
	OAuth          OAuth          `yaml:"oauth"`
	Tokens         Tokens         `yaml:"tokens"`
	Content        Content        `yaml:"content"`
	TokenRefresher TokenRefresher `yaml:"tokenRefresher"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8100"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	SSLMode  string              `yaml:"sslMode"`
}

// ValKey configures the durable content job store. Jobs are kept in process
// memory when no host is configured.
type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"tiktok-gateway"`
}

type Migrate struct {
	Source string `yaml:"source" default:"file://./sql"`
}

type TikTok struct {
	ClientKey    string              `yaml:"clientKey"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`
	RedirectURI  string              `yaml:"redirectURI" default:"http://localhost:8100/auth/callback"`
	// Scopes is a comma separated list, the format the authorize endpoint expects.
	Scopes        string        `yaml:"scopes" default:"user.info.basic,user.info.profile,user.info.stats,video.upload,video.publish"`
	BaseURL       string        `yaml:"baseURL" default:"https://open.tiktokapis.com/v2"`
	AuthBaseURL   string        `yaml:"authBaseURL" default:"https://www.tiktok.com"`
	AuthorizePath string        `yaml:"authorizePath" default:"/v2/auth/authorize/"`
	HTTPTimeout   time.Duration `yaml:"httpTimeout" default:"15s"`
}

// ScopeList returns the configured scopes with blanks removed.
func (t TikTok) ScopeList() []string {
	return SplitList(t.Scopes)
}

type Retry struct {
	MaxAttempts int           `yaml:"maxAttempts" default:"5"`
	BaseDelay   time.Duration `yaml:"baseDelay" default:"200ms"`
	MaxDelay    time.Duration `yaml:"maxDelay" default:"5s"`
}

type OAuth struct {
	StateSecret commoncfg.SourceRef `yaml:"stateSecret"`
	StateTTL    time.Duration       `yaml:"stateTTL" default:"10m"`
	// StateMode is either strict (the state cookie must match the state
	// parameter) or relaxed (signature and age only).
	StateMode   string `yaml:"stateMode" default:"strict"`
	DisablePKCE bool   `yaml:"disablePKCE"`

	StateCookieName    string `yaml:"stateCookieName" default:"tiktok_oauth_state"`
	VerifierCookieName string `yaml:"verifierCookieName" default:"tiktok_pkce_verifier"`
	CookieDomain       string `yaml:"cookieDomain"`
}

type Tokens struct {
	EncryptionKey commoncfg.SourceRef `yaml:"encryptionKey"`
}

type Content struct {
	AllowedURLPrefixes []string      `yaml:"allowedURLPrefixes"`
	CompletionDelay    time.Duration `yaml:"completionDelay" default:"2s"`
	JobTTL             time.Duration `yaml:"jobTTL" default:"24h"`
}

type TokenRefresher struct {
	RefreshInterval time.Duration `yaml:"refreshInterval" default:"10m"`
	Window          time.Duration `yaml:"window" default:"1h"`
}

// IsDevelopmentTier reports whether the environment is one of the local tiers.
func (c *Config) IsDevelopmentTier() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// SplitList splits a comma separated value and drops empty items.
func SplitList(v string) []string {
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}

	return out
}
