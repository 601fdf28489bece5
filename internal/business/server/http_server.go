package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/content"
	"github.com/openkcm/tiktok-gateway/internal/middleware/recovery"
	"github.com/openkcm/tiktok-gateway/internal/middleware/requestid"
	"github.com/openkcm/tiktok-gateway/internal/middleware/secheaders"
	"github.com/openkcm/tiktok-gateway/internal/oauth"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
)

// TikTokAPI is the part of the TikTok client the handlers call directly.
type TikTokAPI interface {
	DevMode() bool
	RefreshToken(ctx context.Context, refreshToken string) (tiktok.TokenPayload, error)
	RevokeToken(ctx context.Context, accessToken string) (tiktok.RevokeResult, error)
	GetClientAccessToken(ctx context.Context) (tiktok.ClientToken, error)
	GetUserInfo(ctx context.Context, accessToken string) (tiktok.UserInfo, error)
	ListVideos(ctx context.Context, accessToken string, cursor int64, maxCount int, fields []string) (tiktok.VideoPage, error)
	QueryVideos(ctx context.Context, accessToken string, videoIDs []string, fields []string) (tiktok.VideoPage, error)
}

type Services struct {
	Flow    *oauth.Flow
	TikTok  TikTokAPI
	Content *content.Service

	// ClientSecretSet reports whether a client secret was resolved. The
	// secret itself never reaches the handlers.
	ClientSecretSet bool
}

type handler struct {
	cfg    *config.Config
	svc    Services
	meters *meters

	stateCookie    config.CookieTemplate
	verifierCookie config.CookieTemplate
}

func newHandler(ctx context.Context, cfg *config.Config, svc Services) (*handler, error) {
	m, err := initMeters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	maxAge := int(svc.Flow.StateTTL().Seconds())

	return &handler{
		cfg:            cfg,
		svc:            svc,
		meters:         m,
		stateCookie:    config.HandshakeCookie(cfg.OAuth.StateCookieName, cfg.OAuth.CookieDomain, maxAge, cfg.TikTok.RedirectURI),
		verifierCookie: config.HandshakeCookie(cfg.OAuth.VerifierCookieName, cfg.OAuth.CookieDomain, maxAge, cfg.TikTok.RedirectURI),
	}, nil
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", h.operation("Health", h.health))

	mux.Handle("GET /auth/login", h.operation("Login", h.login))
	mux.Handle("GET /auth/callback", h.operation("Callback", h.callback))
	mux.Handle("POST /auth/refresh", h.operation("RefreshToken", h.refresh))
	mux.Handle("POST /auth/revoke", h.operation("RevokeToken", h.revoke))
	mux.Handle("POST /auth/client-token", h.operation("ClientToken", h.clientToken))
	mux.Handle("POST /auth/logout", h.operation("Logout", h.logout))

	mux.Handle("GET /content/debug", h.operation("ContentDebug", h.contentDebug))
	mux.Handle("POST /content/upload/file", h.operation("UploadFile", h.uploadFile))
	mux.Handle("POST /content/upload/url", h.operation("UploadURL", h.uploadURL))
	mux.Handle("GET /content/status/{job_id}", h.operation("JobStatus", h.jobStatus))
	mux.Handle("POST /content/publish", h.operation("Publish", h.publish))
	mux.Handle("GET /content/creator-info", h.operation("CreatorInfo", h.creatorInfo))

	mux.Handle("GET /display/profile", h.operation("DisplayProfile", h.displayProfile))
	mux.Handle("GET /display/debug", h.operation("DisplayDebug", h.displayDebug))

	mux.Handle("GET /videos/me", h.operation("MyVideos", h.myVideos))
	mux.Handle("POST /videos/list", h.operation("ListVideos", h.listVideos))
	mux.Handle("POST /videos/query", h.operation("QueryVideos", h.queryVideos))

	return mux
}

// createHTTPServer creates the API http server using the given config.
// Middlewares run outermost first: recovery, request id, security headers,
// CORS.
func createHTTPServer(ctx context.Context, cfg *config.Config, svc Services) (*http.Server, error) {
	h, err := newHandler(ctx, cfg, svc)
	if err != nil {
		return nil, err
	}

	var handler http.Handler = h.routes()
	if len(cfg.HTTP.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", requestid.HeaderRequestID},
			ExposedHeaders:   []string{requestid.HeaderRequestID, requestid.HeaderResponseTime},
			AllowCredentials: true,
		}).Handler(handler)
	}
	handler = secheaders.SecurityHeadersMiddleware(handler)
	handler = requestid.RequestIDMiddleware(handler)
	handler = recovery.RecoveryMiddleware(handler)

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: handler,
	}, nil
}

// StartHTTPServer starts the HTTP server and blocks until ctx is done.
func StartHTTPServer(ctx context.Context, cfg *config.Config, svc Services) error {
	server, err := createHTTPServer(ctx, cfg, svc)
	if err != nil {
		return err
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address is provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
