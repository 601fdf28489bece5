// Package recovery turns a panicking handler into a 500 response.
package recovery

import (
	"net/http"
	"runtime/debug"

	slogctx "github.com/veqryn/slog-context"
)

const internalErrorBody = `{"error":"internal_server_error"}`

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slogctx.Error(r.Context(), "Recovered from a panic in an HTTP handler",
				"panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(internalErrorBody))
		}()

		next.ServeHTTP(w, r)
	})
}
