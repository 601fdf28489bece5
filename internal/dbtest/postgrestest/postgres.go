package postgrestest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	slogctx "github.com/veqryn/slog-context"

	migrations "github.com/openkcm/tiktok-gateway/sql"
)

const (
	DBHost     = "localhost"
	DBUser     = "postgres"
	DBPassword = "secret"
	DBName     = "tiktok_gateway"
	DBSSLMode  = "disable"
)

// Seeded rows, see prepareDB.
const (
	SeedOpenID        = "seed-open-id"
	SeedDisplayName   = "Seed User"
	SeedExpiredOpenID = "seed-expired-open-id"
)

// SeedExpiresAt is the expiry of the seeded user that is about to expire.
var SeedExpiresAt = time.Now().Add(5 * time.Minute).UTC().Truncate(time.Microsecond)

// Start initialises a database instance and returns a connection pool, database port, and termination function.
//
// Database credentials are available as exported constants.
// The database is migrated and contains the rows inserted by prepareDB.
func Start(ctx context.Context) (*pgxpool.Pool, nat.Port, func(ctx context.Context)) {
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(DBName),
		postgres.WithUsername(DBUser),
		postgres.WithPassword(DBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		slogctx.Error(ctx, "Failed to start PostgreSQL", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the PostgreSQL container", slog.String("error", err.Error()))
		panic(err)
	}

	dbPool := makeDBConn(ctx, port)
	prepareDB(ctx, dbPool)

	terminate := func(ctx context.Context) {
		dbPool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate PostgreSQL container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return dbPool, port, terminate
}

// ConnStr returns the connection string for the given port.
func ConnStr(port nat.Port) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", DBHost, DBUser, DBPassword, DBName, port.Port(), DBSSLMode)
}

func makeDBConn(ctx context.Context, port nat.Port) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, ConnStr(port))
	if err != nil {
		panic(err)
	}

	return pool
}

func migrateDB(ctx context.Context, dbPool *pgxpool.Pool) {
	db := stdlib.OpenDBFromPool(dbPool)

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		panic(err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		panic(err)
	}
}

func prepareDB(ctx context.Context, dbPool *pgxpool.Pool) {
	migrateDB(ctx, dbPool)

	b := new(pgx.Batch)
	b.Queue(`INSERT INTO tiktok_users (tiktok_open_id, display_name, profile_image_url, access_token, refresh_token, token_type, scope, expires_at)
		VALUES ($1, $2, 'https://example.com/seed.jpg', '\x01'::bytea, '\x02'::bytea, 'Bearer', 'user.info.basic', now() + interval '30 days');`,
		SeedOpenID, SeedDisplayName)
	b.Queue(`INSERT INTO tiktok_users (tiktok_open_id, access_token, refresh_token, token_type, expires_at)
		VALUES ($1, '\x03'::bytea, '\x04'::bytea, 'Bearer', $2);`,
		SeedExpiredOpenID, SeedExpiresAt)

	res := dbPool.SendBatch(ctx, b)
	if err := res.Close(); err != nil {
		panic(err)
	}
}
