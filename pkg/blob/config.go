package blob

import (
	"context"
	"fmt"
)

// Blob store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Package-level singleton instance.
var storeInstance Store

// Config holds blob store configuration.
type Config struct {
	Driver    string         `toml:"driver"`
	Container string         `toml:"container"`
	Postgres  PostgresConfig `toml:"postgres"`
	SQLite    SQLiteConfig   `toml:"sqlite"`
}

// Validate checks blob store configuration.
func (c *Config) Validate() error {
	if c.Container == "" {
		return fmt.Errorf("container is required")
	}

	switch c.Driver {
	case DriverPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite: path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// Validate checks PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// SQLiteConfig holds SQLite configuration.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// Init initializes the blob package with config.
func Init(ctx context.Context, cfg Config) error {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case DriverPostgres:
		store, err = NewPostgresStore(ctx, cfg.Postgres.DSN())
	case DriverSQLite:
		store, err = NewSQLiteStore(ctx, cfg.SQLite.Path)
	case DriverMemory:
		store = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return err
	}

	storeInstance = store
	return nil
}

// NewStore returns the blob store singleton instance.
func NewStore() Store {
	return storeInstance
}

// Close closes the blob store singleton.
func Close() error {
	if storeInstance != nil {
		return storeInstance.Close()
	}
	return nil
}
