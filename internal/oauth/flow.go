// Package oauth implements the TikTok authorization-code handshake: signed
// state, PKCE, the authorize redirect and the callback state machine.
package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
	"github.com/openkcm/tiktok-gateway/internal/user"
)

type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (tiktok.TokenPayload, error)
	GetUserInfo(ctx context.Context, accessToken string) (tiktok.UserInfo, error)
}

type Persister interface {
	PersistLogin(ctx context.Context, tokens tiktok.TokenPayload, profile tiktok.UserInfo) user.PersistResult
}

// Stages of the callback handling, used as a log attribute.
const (
	stageReceived      = "received"
	stageStateChecked  = "state_checked"
	stageCodeExchanged = "code_exchanged"
	stageProfile       = "profile_fetched"
	stagePersisted     = "persisted"
)

type Flow struct {
	signer *StateSigner
	tokens TokenExchanger
	users  Persister

	clientKey         string
	authorizeEndpoint string
	redirectURI       string
	scopes            []string

	stateTTL    time.Duration
	strictState bool
	usePKCE     bool
}

func NewFlow(tk config.TikTok, oa config.OAuth, signer *StateSigner, tokens TokenExchanger, users Persister) *Flow {
	ttl := oa.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	return &Flow{
		signer:            signer,
		tokens:            tokens,
		users:             users,
		clientKey:         tk.ClientKey,
		authorizeEndpoint: strings.TrimSuffix(tk.AuthBaseURL, "/") + tk.AuthorizePath,
		redirectURI:       tk.RedirectURI,
		scopes:            tk.ScopeList(),
		stateTTL:          ttl,
		strictState:       oa.StateMode != config.StateModeRelaxed,
		usePKCE:           !oa.DisablePKCE,
	}
}

func (f *Flow) StateTTL() time.Duration {
	return f.stateTTL
}

func (f *Flow) UsesPKCE() bool {
	return f.usePKCE
}

type LoginOptions struct {
	ForceConsent bool
	Prompt       string
}

// Login carries what the caller has to hand to the browser: the redirect URL
// and the values to keep in the handshake cookies.
type Login struct {
	URL      string
	State    string
	Verifier string
}

// StartLogin issues a new state and, unless disabled, a PKCE pair and builds
// the authorize URL for them.
func (f *Flow) StartLogin(opts LoginOptions) (Login, error) {
	login := Login{State: f.signer.Generate()}
	params := AuthorizeParams{
		State:        login.State,
		ForceConsent: opts.ForceConsent,
		Prompt:       opts.Prompt,
	}

	if f.usePKCE {
		pair := GeneratePKCEPair()
		login.Verifier = pair.Verifier
		params.CodeChallenge = pair.Challenge
	}

	u, err := f.BuildAuthorizeURL(params)
	if err != nil {
		return Login{}, err
	}
	login.URL = u

	return login, nil
}

// CallbackRequest is everything the provider redirect and the browser
// cookies deliver to the callback.
type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string

	CookieState string
	Verifier    string
	RedirectURI string
}

type TokenSummary struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

type CallbackResult struct {
	Persisted    bool            `json:"persisted"`
	UserID       int64           `json:"user_id,omitempty"`
	PersistError string          `json:"persist_error,omitempty"`
	UserInfo     tiktok.UserInfo `json:"user_info"`
	Token        TokenSummary    `json:"token"`
}

// HandleCallback drives the callback through its stages. State and exchange
// failures are fatal. A failed profile lookup or a failed persistence only
// degrade the result.
func (f *Flow) HandleCallback(ctx context.Context, req CallbackRequest) (CallbackResult, error) {
	stageCtx := slogctx.With(ctx, "stage", stageReceived)

	if req.Error != "" {
		slogctx.Info(stageCtx, "Provider denied the authorization", "provider_error", req.Error)
		return CallbackResult{}, &ProviderDeniedError{Code: req.Error, Description: req.ErrorDescription}
	}

	if err := f.checkState(req); err != nil {
		slogctx.Info(stageCtx, "State check failed", "error", err)
		return CallbackResult{}, err
	}
	stageCtx = slogctx.With(ctx, "stage", stageStateChecked)

	if req.Code == "" {
		return CallbackResult{}, serviceerr.ErrMissingCode
	}

	tokens, err := f.tokens.ExchangeCode(stageCtx, req.Code, req.RedirectURI, req.Verifier)
	if err != nil {
		slogctx.Error(stageCtx, "Code exchange failed", "error", err)
		return CallbackResult{}, fmt.Errorf("%w: %w", serviceerr.ErrUpstream.WithDescription("token exchange failed"), err)
	}
	stageCtx = slogctx.With(ctx, "stage", stageCodeExchanged)

	result := CallbackResult{
		Token: TokenSummary{
			TokenType:   tokens.TokenType,
			ExpiresIn:   tokens.ExpiresIn,
			Scope:       tokens.Scope,
			Placeholder: tokens.Placeholder,
		},
	}

	profile, err := f.tokens.GetUserInfo(stageCtx, tokens.AccessToken)
	if err != nil {
		slogctx.Warn(stageCtx, "Profile lookup failed, continuing without profile", "error", err)
		profile = tiktok.UserInfo{}
	}
	result.UserInfo = profile
	stageCtx = slogctx.With(ctx, "stage", stageProfile)

	if f.users != nil {
		persisted := f.users.PersistLogin(stageCtx, tokens, profile)
		result.Persisted = persisted.Persisted
		result.UserID = persisted.UserID
		result.PersistError = persisted.Error
		if persisted.Error != "" {
			slogctx.Warn(stageCtx, "Login was not persisted", "persist_error", persisted.Error)
		}
	}

	slogctx.Info(slogctx.With(ctx, "stage", stagePersisted), "Login completed",
		"persisted", result.Persisted, "placeholder", result.Token.Placeholder)

	return result, nil
}

func (f *Flow) checkState(req CallbackRequest) error {
	var reason StateErrorReason

	reason.MissingParam = req.State == ""
	if f.strictState {
		reason.MissingCookie = req.CookieState == ""
		reason.MismatchCookie = !reason.MissingParam && !reason.MissingCookie &&
			subtle.ConstantTimeCompare([]byte(req.State), []byte(req.CookieState)) != 1
	}
	reason.BadSignature = !reason.MissingParam && !f.signer.Validate(req.State, f.stateTTL)

	if reason.failed() {
		return &StateError{Reason: reason}
	}

	return nil
}
