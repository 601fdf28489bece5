package tokencrypt

import "strings"

const visibleSuffix = 4

// Redact masks a token for logging, keeping only its last characters.
func Redact(token string) string {
	if token == "" {
		return ""
	}

	if len(token) <= visibleSuffix {
		return strings.Repeat("*", len(token))
	}

	return "****" + token[len(token)-visibleSuffix:]
}
