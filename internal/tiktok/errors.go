package tiktok

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

type ErrorKind string

const (
	KindTransport   ErrorKind = "transport_error"
	KindRateLimited ErrorKind = "rate_limited"
	KindServerError ErrorKind = "server_error"
	KindBadStatus   ErrorKind = "bad_status"
	KindProvider    ErrorKind = "provider_error"
	KindDecode      ErrorKind = "decode_error"
)

// maxErrorBody is the number of characters of a response body kept in a
// bad_status error.
const maxErrorBody = 200

// APIError is the normalized failure of an outbound call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return string(KindRateLimited)
	case KindServerError:
		return fmt.Sprintf("%s:%d", KindServerError, e.StatusCode)
	case KindBadStatus:
		return fmt.Sprintf("%s:%d:%s", KindBadStatus, e.StatusCode, e.Body)
	case KindProvider:
		if e.Message != "" {
			return fmt.Sprintf("%s:%s:%s", KindProvider, e.Code, e.Message)
		}
		return fmt.Sprintf("%s:%s", KindProvider, e.Code)
	default:
		return fmt.Sprintf("%s:%v", e.Kind, e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindRateLimited, KindServerError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a transient APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}
