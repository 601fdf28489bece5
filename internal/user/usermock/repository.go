package usermock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/user"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu     sync.Mutex
	users  map[string]user.User
	nextID int64

	upsertErr, getErr, listErr, updateErr error
}

var _ user.Repository = (*Repository)(nil)

func WithUser(u user.User) RepositoryOption {
	return func(r *Repository) { r.TAdd(u) }
}
func WithUpsertError(err error) RepositoryOption {
	return func(r *Repository) { r.upsertErr = err }
}
func WithGetError(err error) RepositoryOption {
	return func(r *Repository) { r.getErr = err }
}
func WithListError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}
func WithUpdateError(err error) RepositoryOption {
	return func(r *Repository) { r.updateErr = err }
}

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		users: make(map[string]user.User),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// TAdd is a helper method for tests to add a user. A missing id is assigned.
func (r *Repository) TAdd(u user.User) {
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	} else if u.ID > r.nextID {
		r.nextID = u.ID
	}
	r.users[u.OpenID] = u
}

// TGet is a helper method for tests to get a user.
func (r *Repository) TGet(openID string) (user.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[openID]
	return u, ok
}

// TLen is a helper method for tests to count the stored users.
func (r *Repository) TLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.users)
}

func (r *Repository) Upsert(_ context.Context, u user.User) (int64, error) {
	if r.upsertErr != nil {
		return 0, r.upsertErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.users[u.OpenID]; ok {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		u.ID = r.nextID
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.OpenID] = u

	return u.ID, nil
}

func (r *Repository) Get(_ context.Context, openID string) (user.User, error) {
	if r.getErr != nil {
		return user.User{}, r.getErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[openID]
	if !ok {
		return user.User{}, serviceerr.ErrNotFound
	}

	return u, nil
}

func (r *Repository) ListExpiring(_ context.Context, before time.Time) ([]user.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]user.User, 0)
	for _, u := range r.users {
		if len(u.RefreshToken) == 0 || u.ExpiresAt == nil || !u.ExpiresAt.Before(before) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ExpiresAt.Before(*users[j].ExpiresAt) })

	return users, nil
}

func (r *Repository) UpdateTokens(_ context.Context, openID string, upd user.TokenUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[openID]
	if !ok {
		return serviceerr.ErrNotFound
	}

	refreshedAt := upd.RefreshedAt
	u.AccessToken = upd.AccessToken
	u.RefreshToken = upd.RefreshToken
	u.TokenType = upd.TokenType
	u.Scope = upd.Scope
	u.ExpiresAt = upd.ExpiresAt
	u.LastRefreshedAt = &refreshedAt
	u.UpdatedAt = time.Now()
	r.users[openID] = u

	return nil
}
