package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
	"github.com/openkcm/tiktok-gateway/internal/tokencrypt"
)

// UnknownOpenID is stored when neither the profile nor the token response
// carry an open id.
const UnknownOpenID = "unknown_open_id"

var ErrNoCipher = errors.New("token encryption is not configured")

type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (tiktok.TokenPayload, error)
}

// PersistResult reports the outcome of storing a login. Failures are
// reported in Error and never returned as an error.
type PersistResult struct {
	Persisted bool
	UserID    int64
	Error     string
}

type RefreshReport struct {
	Refreshed int
	Failed    int
}

type Service struct {
	repository Repository
	cipher     *tokencrypt.Cipher
	now        func() time.Time
}

func NewService(repo Repository, cipher *tokencrypt.Cipher) *Service {
	return &Service{
		repository: repo,
		cipher:     cipher,
		now:        time.Now,
	}
}

// PersistLogin encrypts the tokens and upserts the user keyed by open id.
func (s *Service) PersistLogin(ctx context.Context, tokens tiktok.TokenPayload, profile tiktok.UserInfo) PersistResult {
	openID := profile.OpenID
	if openID == "" {
		openID = tokens.OpenID
	}
	if openID == "" {
		openID = UnknownOpenID
	}

	accessBlob, refreshBlob, err := s.encryptPair(tokens)
	if err != nil {
		return PersistResult{Error: "persist_error:" + err.Error()}
	}

	now := s.now().UTC()
	u := User{
		OpenID:          openID,
		DisplayName:     profile.DisplayName,
		ProfileImageURL: profile.AvatarURL,
		AccessToken:     accessBlob,
		RefreshToken:    refreshBlob,
		TokenType:       tokens.TokenType,
		Scope:           tokens.Scope,
		ExpiresAt:       expiry(now, tokens.ExpiresIn),
		LastRefreshedAt: &now,
	}

	id, err := s.repository.Upsert(ctx, u)
	if err != nil {
		return PersistResult{Error: "db_error:" + err.Error()}
	}

	slogctx.Debug(ctx, "Stored user tokens", "user_id", id, "access_token", tokencrypt.Redact(tokens.AccessToken))

	return PersistResult{Persisted: true, UserID: id}
}

// AccessToken returns the decrypted access token of a stored user.
func (s *Service) AccessToken(ctx context.Context, openID string) (string, error) {
	u, err := s.repository.Get(ctx, openID)
	if err != nil {
		return "", fmt.Errorf("getting user: %w", err)
	}

	if s.cipher == nil || len(u.AccessToken) == 0 {
		return "", serviceerr.ErrNoUsableToken
	}

	token, ok := s.cipher.TryDecryptText(u.AccessToken)
	if !ok || token == "" {
		return "", serviceerr.ErrNoUsableToken
	}

	return token, nil
}

// RefreshExpiring refreshes the tokens of every user whose access token
// expires within window. A failing user does not stop the others.
func (s *Service) RefreshExpiring(ctx context.Context, refresher Refresher, window time.Duration) (RefreshReport, error) {
	if s.cipher == nil {
		return RefreshReport{}, ErrNoCipher
	}

	users, err := s.repository.ListExpiring(ctx, s.now().Add(window))
	if err != nil {
		return RefreshReport{}, fmt.Errorf("listing expiring users: %w", err)
	}

	var report RefreshReport
	for _, u := range users {
		if err := s.refreshUser(ctx, refresher, u); err != nil {
			slogctx.Warn(ctx, "Failed to refresh user tokens", "user_id", u.ID, "error", err)
			report.Failed++
			continue
		}
		report.Refreshed++
	}

	return report, nil
}

func (s *Service) refreshUser(ctx context.Context, refresher Refresher, u User) error {
	refreshToken, ok := s.cipher.TryDecryptText(u.RefreshToken)
	if !ok || refreshToken == "" {
		return serviceerr.ErrNoUsableToken
	}

	tokens, err := refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	accessBlob, refreshBlob, err := s.encryptPair(tokens)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	upd := TokenUpdate{
		AccessToken:  accessBlob,
		RefreshToken: refreshBlob,
		TokenType:    tokens.TokenType,
		Scope:        tokens.Scope,
		ExpiresAt:    expiry(now, tokens.ExpiresIn),
		RefreshedAt:  now,
	}
	if err := s.repository.UpdateTokens(ctx, u.OpenID, upd); err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}

	return nil
}

func (s *Service) encryptPair(tokens tiktok.TokenPayload) ([]byte, []byte, error) {
	if s.cipher == nil {
		return nil, nil, ErrNoCipher
	}

	accessBlob, err := s.cipher.EncryptText(tokens.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypting access token: %w", err)
	}
	refreshBlob, err := s.cipher.EncryptText(tokens.RefreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypting refresh token: %w", err)
	}

	return accessBlob, refreshBlob, nil
}

func expiry(now time.Time, expiresIn int64) *time.Time {
	if expiresIn <= 0 {
		return nil
	}

	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}
