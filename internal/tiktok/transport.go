package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"
)

const maxResponseBody = 1 << 20

type request struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	json   any
	bearer string
}

func (r request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	u := baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)

	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.json != nil:
		b, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	return req, nil
}

// call performs one logical operation. Transient failures are retried with
// capped exponential backoff. When the attempts are exhausted the last error
// is returned.
func (c *Client) call(ctx context.Context, op string, r request, out any) error {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "tiktok_"+op,
		trace.WithAttributes(attribute.String("tiktok.path", r.path)))
	defer span.End()

	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++

		err := c.roundTrip(ctx, r, out)
		if err == nil {
			return nil
		}

		if IsRetryable(err) {
			slogctx.Warn(ctx, "TikTok call failed", "operation", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		return err
	})
	span.SetAttributes(attribute.Int("tiktok.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.baseDelay)
	b = retry.WithCappedDuration(c.maxDelay, b)

	return retry.WithMaxRetries(uint64(c.maxAttempts-1), b)
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) error {
	req, err := r.build(ctx, c.baseURL)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimited, StatusCode: resp.StatusCode}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &APIError{Kind: KindServerError, StatusCode: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return &APIError{Kind: KindBadStatus, StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	return decode(resp.StatusCode, body, out)
}

// providerError is the error object of the data endpoints. The token
// endpoints report the error as a plain string next to error_description.
type providerError struct {
	Code    string `mapstructure:"code"`
	Message string `mapstructure:"message"`
	LogID   string `mapstructure:"log_id"`
}

func decode(status int, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var envelope struct {
		Error            any    `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &APIError{Kind: KindDecode, StatusCode: status, Err: err}
	}

	if apiErr := providerFailure(envelope.Error, envelope.ErrorDescription); apiErr != nil {
		apiErr.StatusCode = status
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Kind: KindDecode, StatusCode: status, Err: err}
	}

	return nil
}

func providerFailure(raw any, description string) *APIError {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return &APIError{Kind: KindProvider, Code: v, Message: description}
	case map[string]any:
		var pe providerError
		if err := mapstructure.WeakDecode(v, &pe); err != nil {
			return &APIError{Kind: KindProvider, Code: "unknown", Err: err}
		}
		if pe.Code == "" || pe.Code == "ok" {
			return nil
		}
		return &APIError{Kind: KindProvider, Code: pe.Code, Message: pe.Message}
	case bool:
		if !v {
			return nil
		}
		return &APIError{Kind: KindProvider, Code: "true", Message: description}
	default:
		return &APIError{Kind: KindProvider, Code: fmt.Sprint(v), Message: description}
	}
}
