package usersql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/tiktok-gateway/internal/dbtest/postgrestest"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/user"
	"github.com/openkcm/tiktok-gateway/internal/user/usersql"
)

var dbPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, _, terminate := postgrestest.Start(ctx)

	dbPool = pool

	code := m.Run()
	terminate(ctx)
	os.Exit(code)
}

var ignoreTimestamps = cmpopts.IgnoreFields(user.User{}, "ID", "ExpiresAt", "LastRefreshedAt", "CreatedAt", "UpdatedAt")

func TestRepository_Get(t *testing.T) {
	tests := []struct {
		name      string
		openID    string
		want      user.User
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:   "Success",
			openID: postgrestest.SeedOpenID,
			want: user.User{
				OpenID:          postgrestest.SeedOpenID,
				DisplayName:     postgrestest.SeedDisplayName,
				ProfileImageURL: "https://example.com/seed.jpg",
				AccessToken:     []byte{0x01},
				RefreshToken:    []byte{0x02},
				TokenType:       "Bearer",
				Scope:           "user.info.basic",
			},
			assertErr: assert.NoError,
		},
		{
			name:   "Error does not exist",
			openID: "does-not-exist",
			assertErr: func(t assert.TestingT, err error, msgAndArgs ...any) bool {
				return assert.ErrorIs(t, err, serviceerr.ErrNotFound, msgAndArgs...)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := usersql.NewRepository(dbPool)

			got, err := r.Get(t.Context(), tt.openID)
			if !tt.assertErr(t, err, fmt.Sprintf("Repository.Get() error %v", err)) || err != nil {
				assert.Zerof(t, got, "Repository.Get() expected zero value if an error is returned, got %v", got)
				return
			}

			if diff := cmp.Diff(tt.want, got, ignoreTimestamps); diff != "" {
				t.Errorf("Repository.Get() mismatch (-want +got):\n%s", diff)
			}
			assert.NotZero(t, got.ID)
			assert.NotNil(t, got.ExpiresAt)
		})
	}
}

func TestRepository_Upsert(t *testing.T) {
	r := usersql.NewRepository(dbPool)
	ctx := t.Context()

	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	u := user.User{
		OpenID:          "upsert-open-id",
		DisplayName:     "First",
		ProfileImageURL: "https://example.com/first.jpg",
		AccessToken:     []byte("cipher-access"),
		RefreshToken:    []byte("cipher-refresh"),
		TokenType:       "Bearer",
		Scope:           "user.info.basic",
		ExpiresAt:       &expiresAt,
	}

	firstID, err := r.Upsert(ctx, u)
	require.NoError(t, err)
	assert.NotZero(t, firstID)

	u.DisplayName = "Second"
	u.AccessToken = []byte("cipher-access-2")
	secondID, err := r.Upsert(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID, "upserting the same open id must keep the row")

	var count int
	require.NoError(t, dbPool.QueryRow(ctx, `SELECT count(*) FROM tiktok_users WHERE tiktok_open_id = $1`, u.OpenID).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := r.Get(ctx, u.OpenID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.DisplayName)
	assert.Equal(t, []byte("cipher-access-2"), got.AccessToken)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expiresAt.Equal(*got.ExpiresAt))
}

func TestRepository_UpsertWithoutOptionalFields(t *testing.T) {
	r := usersql.NewRepository(dbPool)

	id, err := r.Upsert(t.Context(), user.User{OpenID: "minimal-open-id"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := r.Get(t.Context(), "minimal-open-id")
	require.NoError(t, err)
	assert.Nil(t, got.AccessToken)
	assert.Nil(t, got.ExpiresAt)
}

func TestRepository_ListExpiring(t *testing.T) {
	r := usersql.NewRepository(dbPool)

	got, err := r.ListExpiring(t.Context(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	var openIDs []string
	for _, u := range got {
		openIDs = append(openIDs, u.OpenID)
	}
	assert.Contains(t, openIDs, postgrestest.SeedExpiredOpenID)
	assert.NotContains(t, openIDs, postgrestest.SeedOpenID)
}

func TestRepository_UpdateTokens(t *testing.T) {
	tests := []struct {
		name      string
		openID    string
		assertErr assert.ErrorAssertionFunc
	}{
		{name: "Success", openID: postgrestest.SeedExpiredOpenID, assertErr: assert.NoError},
		{
			name:   "Error does not exist",
			openID: "does-not-exist",
			assertErr: func(t assert.TestingT, err error, msgAndArgs ...any) bool {
				return assert.ErrorIs(t, err, serviceerr.ErrNotFound, msgAndArgs...)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := usersql.NewRepository(dbPool)
			refreshedAt := time.Now().UTC().Truncate(time.Microsecond)
			expiresAt := refreshedAt.Add(24 * time.Hour)

			err := r.UpdateTokens(t.Context(), tt.openID, user.TokenUpdate{
				AccessToken:  []byte("rotated-access"),
				RefreshToken: []byte("rotated-refresh"),
				TokenType:    "Bearer",
				Scope:        "user.info.basic,video.list",
				ExpiresAt:    &expiresAt,
				RefreshedAt:  refreshedAt,
			})
			if !tt.assertErr(t, err, fmt.Sprintf("Repository.UpdateTokens() error %v", err)) || err != nil {
				return
			}

			got, err := r.Get(t.Context(), tt.openID)
			require.NoError(t, err)
			assert.Equal(t, []byte("rotated-access"), got.AccessToken)
			assert.Equal(t, "user.info.basic,video.list", got.Scope)
			require.NotNil(t, got.LastRefreshedAt)
			assert.True(t, refreshedAt.Equal(*got.LastRefreshedAt))
		})
	}
}
