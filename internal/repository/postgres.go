package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

// pgExecutor is the subset of *pgxpool.Pool used by PostgresKV.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresKV stores blobs in a kv_blobs table. It uses pgx directly (no ORM).
type PostgresKV struct {
	db  pgExecutor
	now func() time.Time
}

// NewPostgresKV constructs a PostgresKV. Pass a *pgxpool.Pool.
func NewPostgresKV(db pgExecutor) *PostgresKV {
	return &PostgresKV{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the kv_blobs table if it does not exist.
func (r *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS kv_blobs (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "create kv_blobs")
	}
	return nil
}

func (r *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRow(ctx,
		`SELECT value FROM kv_blobs WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "get blob %q", key)
	}
	return value, nil
}

// Put upserts the blob in a single statement, so a save is never half-applied.
func (r *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO kv_blobs (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, r.now(),
	)
	if err != nil {
		return pkgerrors.Wrapf(err, "put blob %q", key)
	}
	return nil
}
