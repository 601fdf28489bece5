package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/oauth"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
)

const maxJSONBody = 1 << 20

func (h *handler) login(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	login, err := h.svc.Flow.StartLogin(oauth.LoginOptions{
		ForceConsent: q.Get("force") == "1",
		Prompt:       q.Get("prompt"),
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, h.stateCookie.ToCookie(login.State))
	if login.Verifier != "" {
		http.SetCookie(w, h.verifierCookie.ToCookie(login.Verifier))
	}

	slogctx.Info(ctx, "Redirecting to the authorize endpoint", "pkce", login.Verifier != "")
	http.Redirect(w, r, login.URL, http.StatusFound)

	return nil
}

func (h *handler) callback(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	req := oauth.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		CookieState:      cookieValue(r, h.stateCookie.Name),
		Verifier:         cookieValue(r, h.verifierCookie.Name),
		RedirectURI:      h.cfg.TikTok.RedirectURI,
	}

	// The handshake is single use whatever the outcome.
	http.SetCookie(w, h.stateCookie.Expired())
	http.SetCookie(w, h.verifierCookie.Expired())

	result, err := h.svc.Flow.HandleCallback(ctx, req)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, result)

	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Data         tiktok.TokenPayload `json:"data"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	OpenID       string              `json:"open_id,omitempty"`
}

func (h *handler) refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var body refreshRequest
	if err := decodeJSON(r, &body); err != nil {
		return err
	}
	if body.RefreshToken == "" {
		return newBadRequest("refresh_token is required")
	}

	tokens, err := h.svc.TikTok.RefreshToken(ctx, body.RefreshToken)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, refreshResponse{
		Data:         tokens,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		OpenID:       tokens.OpenID,
	})

	return nil
}

type revokeRequest struct {
	AccessToken string `json:"access_token"`
}

func (h *handler) revoke(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var body revokeRequest
	if err := decodeJSON(r, &body); err != nil {
		return err
	}
	if body.AccessToken == "" {
		return newBadRequest("access_token is required")
	}

	result, err := h.svc.TikTok.RevokeToken(ctx, body.AccessToken)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, result)

	return nil
}

func (h *handler) clientToken(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	token, err := h.svc.TikTok.GetClientAccessToken(ctx)
	if err != nil {
		return err
	}

	writeJSON(ctx, w, http.StatusOK, token)

	return nil
}

func (h *handler) logout(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	http.SetCookie(w, h.stateCookie.Expired())
	http.SetCookie(w, h.verifierCookie.Expired())

	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": "logged out"})

	return nil
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}

// decodeJSON reads a JSON request body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return newBadRequest("malformed json body")
	}

	return nil
}
