package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/webinar-search-api/pkg/schema/config"
)

// ErrDatastoreUnavailable marks failures to reach the datastore or to borrow a
// connection from the pool.
var ErrDatastoreUnavailable = errors.New("datastore unavailable")

// connectFunc opens and pings a pool. Replaced in tests.
var connectFunc = func(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, "postgres", dsn)
}

// OpenPostgres opens the shared connection pool. The datastore may still be
// starting, so acquisition is retried cfg.ConnectAttempts times with a fixed
// cfg.ConnectDelay between attempts before giving up.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if cfg.PostgresURI == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var pgDB *sqlx.DB
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.ConnectDelay), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		attempt++
		conn, err := connectFunc(ctx, cfg.PostgresURI)
		if err != nil {
			slog.Warn("postgres connection attempt failed", "attempt", attempt, "max_attempts", attempts, "error", err)
			return err
		}
		pgDB = conn
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to postgres after %d attempts: %v", ErrDatastoreUnavailable, attempt, err)
	}

	// Configure connection pool
	pgDB.SetMaxOpenConns(cfg.MaxOpenConns)
	pgDB.SetMaxIdleConns(cfg.MaxIdleConns)
	pgDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pgDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("postgres connection pool ready", "attempts", attempt, "max_open_conns", cfg.MaxOpenConns)
	return pgDB, nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres(pgDB *sqlx.DB) error {
	if pgDB != nil {
		return pgDB.Close()
	}
	return nil
}

// Ping verifies the pool can still reach the datastore.
func Ping(ctx context.Context, pgDB *sqlx.DB) error {
	if pgDB == nil {
		return fmt.Errorf("%w: connection not initialized", ErrDatastoreUnavailable)
	}
	if err := pgDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDatastoreUnavailable, err)
	}
	return nil
}

// VectorDimensions reads the declared dimension of webinar_embeddings.vector.
// It returns 0 before the schema is migrated.
func VectorDimensions(ctx context.Context, pgDB *sqlx.DB) (int, error) {
	var dims int
	err := pgDB.GetContext(ctx, &dims, `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass('webinar_embeddings')
		  AND a.attname = 'vector'
		  AND NOT a.attisdropped`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read vector dimensions: %v", ErrDatastoreUnavailable, err)
	}
	return dims, nil
}

// CheckVectorDimensions fails when want differs from the dimension of the
// vector column, so a mismatched EMBEDDING_DIMENSIONS stops startup instead
// of failing every upsert and query.
func CheckVectorDimensions(ctx context.Context, pgDB *sqlx.DB, want int) error {
	got, err := VectorDimensions(ctx, pgDB)
	if err != nil {
		return err
	}
	if got > 0 && got != want {
		return fmt.Errorf("EMBEDDING_DIMENSIONS is %d but webinar_embeddings.vector is vector(%d): use a %d-dimension model or migrate the column", want, got, got)
	}
	return nil
}
