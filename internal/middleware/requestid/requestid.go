// Package requestid propagates a request id through the context and reports
// it together with the handling time in the response headers.
package requestid

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	slogctx "github.com/veqryn/slog-context"
)

const (
	HeaderRequestID    = "X-Request-Id"
	HeaderResponseTime = "X-Response-Time-Ms"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// RequestIDKey is the context key for the request id.
const RequestIDKey contextKey = "request-id"

// RequestIDMiddleware reuses the incoming X-Request-Id or generates one,
// stores it in the context and the log attributes, and sets the
// X-Request-Id and X-Response-Time-Ms response headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		ctx = slogctx.With(ctx, commoncfg.AttrRequestID, id)

		tw := &timingWriter{ResponseWriter: w, start: time.Now()}
		w.Header().Set(HeaderRequestID, id)

		next.ServeHTTP(tw, r.WithContext(ctx))

		if !tw.wroteHeader {
			tw.WriteHeader(http.StatusOK)
		}
	})
}

// RequestIDFromContext retrieves the request id from the context.
func RequestIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return "", errors.New("request id not found in context")
	}
	return id, nil
}

// timingWriter sets the response time header right before the headers are
// sent.
type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timingWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.Header().Set(HeaderResponseTime, strconv.FormatInt(time.Since(w.start).Milliseconds(), 10))
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
