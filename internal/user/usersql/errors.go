package usersql

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

const pgUniqueViolation = "23505"

func handlePgError(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return serviceerr.ErrConflict, true
	}

	return err, false
}
