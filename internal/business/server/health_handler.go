package server

import (
	"context"
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
	Env    string `json:"env"`
}

func (h *handler) health(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	writeJSON(ctx, w, http.StatusOK, healthResponse{
		Status: "ok",
		App:    h.cfg.Application.Name,
		Env:    h.cfg.Environment,
	})

	return nil
}
