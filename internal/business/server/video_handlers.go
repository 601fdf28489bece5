package server

import (
	"context"
	"net/http"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

const defaultMaxCount = 20

type listVideosRequest struct {
	Cursor   int64    `json:"cursor"`
	MaxCount *int     `json:"max_count"`
	Fields   []string `json:"fields"`
}

type queryVideosRequest struct {
	VideoIDs []string `json:"video_ids"`
	Fields   []string `json:"fields"`
}

func requireBearer(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", serviceerr.ErrUnauthorized
	}

	return token, nil
}

func (h *handler) myVideos(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := requireBearer(r)
	if err != nil {
		return err
	}

	info, err := h.svc.TikTok.GetUserInfo(ctx, token)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, info)

	return nil
}

func (h *handler) listVideos(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := requireBearer(r)
	if err != nil {
		return err
	}

	var body listVideosRequest
	if err := decodeJSON(r, &body); err != nil {
		return err
	}

	maxCount := defaultMaxCount
	if body.MaxCount != nil {
		maxCount = *body.MaxCount
	}

	page, err := h.svc.TikTok.ListVideos(ctx, token, body.Cursor, maxCount, body.Fields)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, page)

	return nil
}

func (h *handler) queryVideos(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := requireBearer(r)
	if err != nil {
		return err
	}

	var body queryVideosRequest
	if err := decodeJSON(r, &body); err != nil {
		return err
	}
	if len(body.VideoIDs) == 0 {
		return newBadRequest("video_ids is required")
	}

	page, err := h.svc.TikTok.QueryVideos(ctx, token, body.VideoIDs, body.Fields)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, page)

	return nil
}
