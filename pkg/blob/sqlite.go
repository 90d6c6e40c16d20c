package blob

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" is accepted.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 单连接：写入串行，且 :memory: 库在连接间不共享
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS blob_containers (
    name        TEXT    PRIMARY KEY,
    created_at  TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS blobs (
    container   TEXT    NOT NULL REFERENCES blob_containers (name),
    key         TEXT    NOT NULL,
    data        BLOB    NOT NULL,
    size        INTEGER NOT NULL,
    created_at  TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (container, key)
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, container, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO blob_containers (name) VALUES (?)`, container); err != nil {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO blobs (container, key, data, size) VALUES (?, ?, ?, ?)
ON CONFLICT (container, key)
DO UPDATE SET data = excluded.data, size = excluded.size, created_at = CURRENT_TIMESTAMP
`, container, key, data, len(data)); err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit blob %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE container = ? AND key = ?`, container, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM blob_containers WHERE name = ?`, container).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to check container %s: %w", container, err)
		}
		if n == 0 {
			return nil, containerNotFound(container)
		}
		return nil, blobNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, container, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE container = ? AND key = ?`, container, key)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	if n == 0 {
		return blobNotFound(key)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
