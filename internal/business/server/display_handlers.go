package server

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

const (
	bearerPrefix      = "bearer "
	debugPrefixLength = 8
)

// bearerToken returns the token of an "Authorization: Bearer" header. The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}

func (h *handler) displayProfile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return serviceerr.ErrMissingAccessToken
	}

	info, err := h.svc.TikTok.GetUserInfo(ctx, token)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, info)

	return nil
}

type displayDebugResponse struct {
	Env                string `json:"env"`
	ClientKeySet       bool   `json:"client_key_set"`
	ClientSecretSet    bool   `json:"client_secret_set"`
	IsDevMode          bool   `json:"is_dev_mode"`
	TokenStartsWithDev bool   `json:"token_startswith_dev"`
	TokenPrefix        string `json:"token_prefix"`
}

func (h *handler) displayDebug(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")

	writeJSON(ctx, w, http.StatusOK, displayDebugResponse{
		Env:                h.cfg.Environment,
		ClientKeySet:       h.cfg.TikTok.ClientKey != "",
		ClientSecretSet:    h.svc.ClientSecretSet,
		IsDevMode:          h.svc.TikTok.DevMode(),
		TokenStartsWithDev: strings.HasPrefix(token, "dev_"),
		TokenPrefix:        tokenPrefix(token),
	})

	return nil
}

// tokenPrefix returns the first characters of a token, never splitting a
// multi-byte character.
func tokenPrefix(token string) string {
	if utf8.RuneCountInString(token) <= debugPrefixLength {
		return token
	}

	return string([]rune(token)[:debugPrefixLength])
}
