package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// PostgresBackend persists keys in a single table, used for durable
// deployments that want relational storage instead of Redis/S3.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend opens a connection and ensures the backing table
// exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return NewPostgresBackendFromDB(ctx, db)
}

// NewPostgresBackendFromDB builds a backend around an already-open *sql.DB,
// skipping the dial step NewPostgresBackend does. This is the seam tests
// use to swap in a go-sqlmock connection without a real Postgres server.
func NewPostgresBackendFromDB(ctx context.Context, db *sql.DB) (*PostgresBackend, error) {
	b := &PostgresBackend{db: db}
	if err := b.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) ensureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS registry_kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL
	)`
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	const stmt = `INSERT INTO registry_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := b.db.ExecContext(ctx, stmt, key, value); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM registry_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, regerrors.ErrSchemaNotFound
	}
	if err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return value, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM registry_kv WHERE key = $1`, key); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *PostgresBackend) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM registry_kv WHERE key LIKE $1`, prefix+"%")
	if err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, regerrors.BackendUnavailable(err.Error())
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Watch is not supported by the Postgres backend; callers needing push
// notifications should use the Redis or filesystem backend, or poll List.
func (b *PostgresBackend) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	return nil, regerrors.Custom("watch is not supported by the postgres backend")
}

func (b *PostgresBackend) Close(ctx context.Context) error {
	if err := b.db.Close(); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}
