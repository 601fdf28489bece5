package user

import "time"

// User is one row per TikTok identity. The token fields hold ciphertext.
type User struct {
	ID              int64
	OpenID          string
	DisplayName     string
	ProfileImageURL string
	AccessToken     []byte
	RefreshToken    []byte
	TokenType       string
	Scope           string
	ExpiresAt       *time.Time
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TokenUpdate replaces the stored tokens of a user after a refresh.
type TokenUpdate struct {
	AccessToken  []byte
	RefreshToken []byte
	TokenType    string
	Scope        string
	ExpiresAt    *time.Time
	RefreshedAt  time.Time
}
