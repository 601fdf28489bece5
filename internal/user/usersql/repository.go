package usersql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/user"
)

const userColumns = `id, tiktok_open_id, display_name, profile_image_url, access_token, refresh_token,
	token_type, scope, expires_at, last_refreshed_at, created_at, updated_at`

type Repository struct {
	db *pgxpool.Pool
}

var _ user.Repository = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Upsert(ctx context.Context, u user.User) (int64, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "upsert_tiktok_user_sql")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tiktok_users (tiktok_open_id, display_name, profile_image_url, access_token, refresh_token,
				token_type, scope, expires_at, last_refreshed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (tiktok_open_id) DO UPDATE
			 SET display_name = EXCLUDED.display_name,
				 profile_image_url = EXCLUDED.profile_image_url,
				 access_token = EXCLUDED.access_token,
				 refresh_token = EXCLUDED.refresh_token,
				 token_type = EXCLUDED.token_type,
				 scope = EXCLUDED.scope,
				 expires_at = EXCLUDED.expires_at,
				 last_refreshed_at = EXCLUDED.last_refreshed_at,
				 updated_at = now()
			 RETURNING id;`,
		u.OpenID, u.DisplayName, u.ProfileImageURL, u.AccessToken, u.RefreshToken,
		u.TokenType, u.Scope, u.ExpiresAt, u.LastRefreshedAt,
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		if err, ok := handlePgError(err); ok {
			return 0, err
		}

		return 0, fmt.Errorf("upserting tiktok user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return id, nil
}

func (r *Repository) Get(ctx context.Context, openID string) (user.User, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "get_tiktok_user_sql")
	defer span.End()

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM tiktok_users WHERE tiktok_open_id = $1;`, openID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, serviceerr.ErrNotFound
		}
		span.RecordError(err)
		return user.User{}, fmt.Errorf("scanning row: %w", err)
	}

	return u, nil
}

func (r *Repository) ListExpiring(ctx context.Context, before time.Time) ([]user.User, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "list_expiring_tiktok_users_sql")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM tiktok_users
			 WHERE refresh_token IS NOT NULL AND expires_at IS NOT NULL AND expires_at < $1
			 ORDER BY expires_at;`, before)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("querying expiring users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return users, nil
}

func (r *Repository) UpdateTokens(ctx context.Context, openID string, upd user.TokenUpdate) error {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "update_tiktok_user_tokens_sql")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE tiktok_users
			 SET access_token = $1, refresh_token = $2, token_type = $3, scope = $4,
				 expires_at = $5, last_refreshed_at = $6, updated_at = now()
			 WHERE tiktok_open_id = $7;`,
		upd.AccessToken, upd.RefreshToken, upd.TokenType, upd.Scope, upd.ExpiresAt, upd.RefreshedAt, openID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("updating tokens: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.OpenID, &u.DisplayName, &u.ProfileImageURL, &u.AccessToken, &u.RefreshToken,
		&u.TokenType, &u.Scope, &u.ExpiresAt, &u.LastRefreshedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	return u, nil
}
