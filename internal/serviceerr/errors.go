// Package serviceerr defines the error codes returned by the gateway API
// together with their HTTP status mapping.
package serviceerr

import (
	"net/http"
)

type Code string

const (
	CodeInvalidRequest          Code = "invalid_request"
	CodeUnauthorized            Code = "unauthorized"
	CodeAccessDenied            Code = "access_denied"
	CodeServerError             Code = "server_error"
	CodeTemporarilyUnavailable  Code = "temporarily_unavailable"
	CodeUpstreamError           Code = "upstream_error"
	CodeInvalidState            Code = "invalid_state"
	CodeMissingCode             Code = "missing_code"
	CodeMissingAccessToken      Code = "missing_access_token"
	CodeSourceURLNotWhitelisted Code = "source_url_not_whitelisted"
	CodeInvalidPublishMode      Code = "invalid_publish_mode"
	CodeNoUsableToken           Code = "no_usable_token"

	CodeUnknown  Code = "unknown"
	CodeConflict Code = "conflict"
	CodeNotFound Code = "not_found"
)

var (
	ErrInvalidRequest         = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized           = &Error{Err: CodeUnauthorized, Description: "missing bearer token"}
	ErrAccessDenied           = &Error{Err: CodeAccessDenied}
	ErrServerError            = &Error{Err: CodeServerError}
	ErrTemporarilyUnavailable = &Error{Err: CodeTemporarilyUnavailable}
	ErrUpstream               = &Error{Err: CodeUpstreamError, Description: "upstream provider call failed"}
	ErrInvalidState           = &Error{Err: CodeInvalidState, Description: "state validation failed"}
	ErrMissingCode            = &Error{Err: CodeMissingCode, Description: "authorization code is missing"}
	ErrMissingAccessToken     = &Error{Err: CodeMissingAccessToken, Description: "access token is missing"}
	ErrSourceURLNotAllowed    = &Error{Err: CodeSourceURLNotWhitelisted, Description: "source url is not whitelisted"}
	ErrInvalidPublishMode     = &Error{Err: CodeInvalidPublishMode, Description: "publish mode must be one of public, friends, self, draft"}
	ErrNoUsableToken          = &Error{Err: CodeNoUsableToken, Description: "stored token cannot be used, re-authentication required"}

	ErrUnknown  = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrConflict = &Error{Err: CodeConflict, Description: "already exists"}
	ErrNotFound = &Error{Err: CodeNotFound, Description: "not found"}
)

type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// Is reports whether target carries the same code, so that errors with a
// custom description still match the predefined ones.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Err == e.Err
}

// WithDescription returns a copy of the error with the given description.
func (e *Error) WithDescription(description string) *Error {
	return &Error{Err: e.Err, Description: description}
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest,
		CodeInvalidState,
		CodeMissingCode,
		CodeMissingAccessToken,
		CodeSourceURLNotWhitelisted,
		CodeInvalidPublishMode:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeNoUsableToken:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUpstreamError:
		return http.StatusBadGateway
	case CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
