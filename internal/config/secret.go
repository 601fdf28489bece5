package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// LoadOptionalSecret resolves a secret reference. An unset reference yields
// an empty value instead of an error.
func LoadOptionalSecret(ref commoncfg.SourceRef) (string, error) {
	if ref.Source == "" {
		return "", nil
	}

	value, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return "", fmt.Errorf("loading secret: %w", err)
	}

	return strings.TrimSpace(string(value)), nil
}

// EmbeddedSecret wraps a literal value into a secret reference.
func EmbeddedSecret(value string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "embedded", Value: value}
}

// IsHTTPS reports whether the given URL uses the https scheme.
func IsHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return strings.EqualFold(u.Scheme, "https")
}
