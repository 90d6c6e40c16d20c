package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return store, nil
}

// ensureSchema creates the blob_containers and blobs tables if they don't exist.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS blob_containers (
    name        TEXT        PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS blobs (
    container   TEXT        NOT NULL REFERENCES blob_containers (name),
    key         TEXT        NOT NULL,
    data        BYTEA       NOT NULL,
    size        BIGINT      NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (container, key)
);
`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// Save inserts or overwrites a blob (UPSERT).
func (s *PostgresStore) Save(ctx context.Context, container, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO blob_containers (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			container); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
INSERT INTO blobs (container, key, data, size, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (container, key)
DO UPDATE SET data = EXCLUDED.data, size = EXCLUDED.size, created_at = EXCLUDED.created_at
`, container, key, data, len(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM blobs WHERE container = $1 AND key = $2`,
		container, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		exists, cerr := s.containerExists(ctx, container)
		if cerr != nil {
			return nil, cerr
		}
		if !exists {
			return nil, containerNotFound(container)
		}
		return nil, blobNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *PostgresStore) Delete(ctx context.Context, container, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blobs WHERE container = $1 AND key = $2`, container, key)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return blobNotFound(key)
	}
	return nil
}

func (s *PostgresStore) containerExists(ctx context.Context, container string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blob_containers WHERE name = $1)`, container).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check container %s: %w", container, err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
