package config

import "github.com/openkcm/common-sdk/pkg/commoncfg"

const redactedValue = "<redacted>"

// Redacted returns a copy of the configuration with every secret reference
// that carries its value inline masked.
func (c Config) Redacted() Config {
	for _, ref := range []*commoncfg.SourceRef{
		&c.Database.Host,
		&c.Database.User,
		&c.Database.Password,
		&c.ValKey.User,
		&c.ValKey.Password,
		&c.TikTok.ClientSecret,
		&c.OAuth.StateSecret,
		&c.Tokens.EncryptionKey,
	} {
		if ref.Source == "embedded" && ref.Value != "" {
			ref.Value = redactedValue
		}
	}

	return c
}
