package user

import (
	"context"
	"time"
)

type Repository interface {
	// Upsert inserts the user or replaces the row with the same open id and
	// returns the row id.
	Upsert(ctx context.Context, u User) (int64, error)
	Get(ctx context.Context, openID string) (User, error)
	// ListExpiring returns users holding a refresh token whose access token
	// expires before the given time.
	ListExpiring(ctx context.Context, before time.Time) ([]User, error)
	UpdateTokens(ctx context.Context, openID string, upd TokenUpdate) error
}
