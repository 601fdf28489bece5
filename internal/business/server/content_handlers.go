package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/openkcm/tiktok-gateway/internal/content"
)

const (
	maxUploadMemory = 32 << 20
	firstChunkSize  = 1024
)

type jobResponse struct {
	Message string      `json:"message"`
	Job     content.Job `json:"job"`
}

func (h *handler) contentDebug(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	prefixes := h.svc.Content.AllowedPrefixes()
	if prefixes == nil {
		prefixes = []string{}
	}

	writeJSON(ctx, w, http.StatusOK, map[string][]string{"whitelist_prefixes": prefixes})

	return nil
}

func (h *handler) uploadFile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return newBadRequest("multipart form expected")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return newBadRequest("file is required")
	}
	defer file.Close()

	head := make([]byte, firstChunkSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return newBadRequest("reading upload failed")
	}

	job, err := h.svc.Content.CreateLocalFileJob(ctx, header.Filename, head[:n], r.FormValue("publish_mode"))
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, jobResponse{Message: "upload_file_accepted", Job: job})

	return nil
}

func (h *handler) uploadURL(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sourceURL := r.FormValue("source_url")
	if sourceURL == "" {
		return newBadRequest("source_url is required")
	}

	job, err := h.svc.Content.CreatePullByURLJob(ctx, sourceURL, r.FormValue("publish_mode"))
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, jobResponse{Message: "upload_url_job_created", Job: job})

	return nil
}

type statusResponse struct {
	JobID  string               `json:"job_id"`
	Status content.StatusResult `json:"status"`
}

func (h *handler) jobStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("job_id")

	st, err := h.svc.Content.Status(ctx, id)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, statusResponse{JobID: id, Status: st})

	return nil
}

type publishResponse struct {
	Message string                `json:"message"`
	Result  content.PublishResult `json:"result"`
}

func (h *handler) publish(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	jobID := r.FormValue("job_id")
	if jobID == "" {
		return newBadRequest("job_id is required")
	}

	res, err := h.svc.Content.Publish(ctx, jobID, r.FormValue("privacy"), r.FormValue("caption"))
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, publishResponse{Message: "publish_enqueued", Result: res})

	return nil
}

func (h *handler) creatorInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, err := h.svc.Content.CreatorInfo(ctx, r.URL.Query().Get("access_token"))
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, info)

	return nil
}
