package business

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/business/server"
	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/content"
	"github.com/openkcm/tiktok-gateway/internal/content/contentmem"
	"github.com/openkcm/tiktok-gateway/internal/content/contentvalkey"
	"github.com/openkcm/tiktok-gateway/internal/oauth"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
	"github.com/openkcm/tiktok-gateway/internal/tokencrypt"
	"github.com/openkcm/tiktok-gateway/internal/user"
	"github.com/openkcm/tiktok-gateway/internal/user/usersql"
)

const generatedKeySize = 32

var (
	ErrMissingSecret    = errors.New("secret is not configured")
	ErrDatabaseRequired = errors.New("database is not configured")
)

// gateway holds the wired services. users is nil when no database is
// configured; logins are then not persisted.
type gateway struct {
	client          *tiktok.Client
	clientSecretSet bool
	users           *user.Service
	flow            *oauth.Flow
	content         *content.Service
}

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	gw, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}
	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, server.Services{
		Flow:            gw.flow,
		TikTok:          gw.client,
		Content:         gw.content,
		ClientSecretSet: gw.clientSecretSet,
	})
}

// TokenRefresherMain periodically refreshes the stored tokens that expire
// within the configured window.
func TokenRefresherMain(ctx context.Context, cfg *config.Config) error {
	gw, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}
	defer closeFn()

	if gw.users == nil {
		return ErrDatabaseRequired
	}

	slogctx.Info(ctx, "Starting token refresh job")
	return startTokenRefresher(ctx, gw, cfg)
}

func startTokenRefresher(ctx context.Context, gw *gateway, cfg *config.Config) error {
	ticker := time.NewTicker(cfg.TokenRefresher.RefreshInterval)
	defer ticker.Stop()

	for {
		slogctx.Info(ctx, "Triggering tokens refresh")
		report, err := gw.users.RefreshExpiring(ctx, gw.client, cfg.TokenRefresher.Window)
		if err != nil {
			slogctx.Error(ctx, "Failed to refresh tokens", "error", err)
		} else {
			slogctx.Info(ctx, "Tokens refreshed", "refreshed", report.Refreshed, "failed", report.Failed)
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func initGateway(ctx context.Context, cfg *config.Config) (_ *gateway, closeFn func(), _ error) {
	var closers []func()
	closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	clientSecret, err := config.LoadOptionalSecret(cfg.TikTok.ClientSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("loading tiktok client secret: %w", err)
	}

	client := tiktok.NewClient(tiktok.Options{
		ClientKey:       cfg.TikTok.ClientKey,
		ClientSecret:    clientSecret,
		RedirectURI:     cfg.TikTok.RedirectURI,
		Scopes:          cfg.TikTok.ScopeList(),
		BaseURL:         cfg.TikTok.BaseURL,
		DevelopmentTier: cfg.IsDevelopmentTier(),
		MaxAttempts:     cfg.Retry.MaxAttempts,
		BaseDelay:       cfg.Retry.BaseDelay,
		MaxDelay:        cfg.Retry.MaxDelay,
		HTTPClient:      newHTTPClient(cfg),
	})
	if client.DevMode() {
		slogctx.Warn(ctx, "TikTok client runs in development mode, provider calls are answered with placeholders")
	}

	stateSecret, err := loadKey(ctx, cfg, cfg.OAuth.StateSecret, "oauth state secret")
	if err != nil {
		return nil, nil, err
	}

	signer, err := oauth.NewStateSigner(stateSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("creating state signer: %w", err)
	}

	users, closeDB, err := initUsers(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeDB != nil {
		closers = append(closers, closeDB)
	}

	jobs, closeValkey, err := initContentRepository(ctx, cfg)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if closeValkey != nil {
		closers = append(closers, closeValkey)
	}

	var persister oauth.Persister
	if users != nil {
		persister = users
	}

	return &gateway{
		client:          client,
		clientSecretSet: clientSecret != "",
		users:           users,
		flow:            oauth.NewFlow(cfg.TikTok, cfg.OAuth, signer, client, persister),
		content:         content.NewService(jobs, client, cfg.Content),
	}, closeFn, nil
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.TikTok.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// loadKey resolves a secret. On the development tiers a missing secret is
// replaced with a random one that only lives as long as the process.
func loadKey(ctx context.Context, cfg *config.Config, ref commoncfg.SourceRef, name string) ([]byte, error) {
	value, err := config.LoadOptionalSecret(ref)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if value != "" {
		return []byte(value), nil
	}

	if !cfg.IsDevelopmentTier() {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecret, name)
	}

	slogctx.Warn(ctx, "Using a generated key, values bound to it do not survive a restart", "key", name)

	key := make([]byte, generatedKeySize)
	_, _ = rand.Read(key)

	return key, nil
}

func initUsers(ctx context.Context, cfg *config.Config) (*user.Service, func(), error) {
	if cfg.Database.Host.Source == "" {
		slogctx.Warn(ctx, "No database configured, logins are not persisted")
		return nil, nil, nil
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	key, err := loadKey(ctx, cfg, cfg.Tokens.EncryptionKey, "token encryption key")
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	cipher, err := tokencrypt.NewCipher(key)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating token cipher: %w", err)
	}

	return user.NewService(usersql.NewRepository(db), cipher), db.Close, nil
}

func initContentRepository(ctx context.Context, cfg *config.Config) (content.Repository, func(), error) {
	if cfg.ValKey.Host.Source == "" {
		slogctx.Info(ctx, "No valkey configured, content jobs are kept in memory")
		return contentmem.NewRepository(), nil, nil
	}

	valkeyHost, err := config.LoadOptionalSecret(cfg.ValKey.Host)
	if err != nil {
		return nil, nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := config.LoadOptionalSecret(cfg.ValKey.User)
	if err != nil {
		return nil, nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := config.LoadOptionalSecret(cfg.ValKey.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{valkeyHost},
		Username:    valkeyUsername,
		Password:    valkeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return contentvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix, cfg.Content.JobTTL), valkeyClient.Close, nil
}
