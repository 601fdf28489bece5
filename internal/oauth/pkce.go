package oauth

import (
	"golang.org/x/oauth2"
)

const MethodS256 = "S256"

type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCEPair returns a verifier of 32 random bytes (43 characters) and
// its S256 challenge.
func GeneratePKCEPair() PKCE {
	verifier := oauth2.GenerateVerifier()

	return PKCE{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    MethodS256,
	}
}
