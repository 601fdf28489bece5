package oauth

import (
	"strings"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

// StateErrorReason tells which state checks failed.
type StateErrorReason struct {
	MissingParam   bool `json:"missing_param"`
	MissingCookie  bool `json:"missing_cookie"`
	MismatchCookie bool `json:"mismatch_cookie"`
	BadSignature   bool `json:"bad_signature"`
}

func (r StateErrorReason) failed() bool {
	return r.MissingParam || r.MissingCookie || r.MismatchCookie || r.BadSignature
}

type StateError struct {
	Reason StateErrorReason
}

func (e *StateError) Error() string {
	var reasons []string
	if e.Reason.MissingParam {
		reasons = append(reasons, "missing_param")
	}
	if e.Reason.MissingCookie {
		reasons = append(reasons, "missing_cookie")
	}
	if e.Reason.MismatchCookie {
		reasons = append(reasons, "mismatch_cookie")
	}
	if e.Reason.BadSignature {
		reasons = append(reasons, "bad_signature")
	}

	return "invalid state: " + strings.Join(reasons, ",")
}

func (e *StateError) Unwrap() error {
	return serviceerr.ErrInvalidState
}

// ProviderDeniedError is returned when the provider redirects back with an
// error instead of a code, for example when the user cancels the consent.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description == "" {
		return "provider denied authorization: " + e.Code
	}

	return "provider denied authorization: " + e.Code + ": " + e.Description
}

func (e *ProviderDeniedError) Unwrap() error {
	return serviceerr.ErrAccessDenied
}
