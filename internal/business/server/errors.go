package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/oauth"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
)

type errorModel struct {
	Error            string                  `json:"error"`
	ErrorDescription string                  `json:"error_description,omitempty"`
	Reason           *oauth.StateErrorReason `json:"reason,omitempty"`
}

func toErrorModel(err error) (model errorModel, httpStatus int) {
	var stateErr *oauth.StateError
	if errors.As(err, &stateErr) {
		reason := stateErr.Reason
		return errorModel{
			Error:            string(serviceerr.CodeInvalidState),
			ErrorDescription: "state validation failed",
			Reason:           &reason,
		}, serviceerr.ErrInvalidState.HTTPStatus()
	}

	var denied *oauth.ProviderDeniedError
	if errors.As(err, &denied) {
		return errorModel{
			Error:            string(serviceerr.CodeAccessDenied),
			ErrorDescription: denied.Description,
		}, http.StatusBadRequest
	}

	var serviceErr *serviceerr.Error
	if errors.As(err, &serviceErr) {
		return errorModel{
			Error:            string(serviceErr.Err),
			ErrorDescription: serviceErr.Description,
		}, serviceErr.HTTPStatus()
	}

	var apiErr *tiktok.APIError
	if errors.As(err, &apiErr) {
		return errorModel{
			Error:            string(serviceerr.CodeUpstreamError),
			ErrorDescription: "tiktok_api_error:" + apiErr.Error(),
		}, serviceerr.ErrUpstream.HTTPStatus()
	}

	return errorModel{
		Error:            string(serviceerr.ErrUnknown.Err),
		ErrorDescription: serviceerr.ErrUnknown.Description,
	}, serviceerr.ErrUnknown.HTTPStatus()
}

func newBadRequest(description string) error {
	return serviceerr.ErrInvalidRequest.WithDescription(description)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	body, status := toErrorModel(err)
	if status >= http.StatusInternalServerError {
		slogctx.Error(ctx, "Request failed", "error", err, "status", status)
	} else {
		slogctx.Info(ctx, "Request rejected", "error", body.Error, "status", status)
	}

	writeJSON(ctx, w, status, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogctx.Error(ctx, "Failed to encode response", "error", err)
	}
}
