// Package store is the PostgreSQL persistence layer: connection pooling,
// embedded schema migrations, and the EventStore used by the batching
// writer (§4.3) plus the tenant, quota, and rule stores (§5) that feed
// the cache protocols used by guards and emitters.
//
// The teacher's database layer sits on top of entgo.io/ent's generated
// query builder. Ent's generated code is produced by `go generate`, which
// this rework cannot run, so this package talks to PostgreSQL directly
// through pgx's database/sql driver instead, with golang-migrate applying
// the schema from embedded SQL files. The connection-pooling and
// migration-on-startup shape carries over unchanged.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps a pooled PostgreSQL connection and exposes the store
// interfaces built on top of it (EventStore, TenantStore, PricingStore,
// RuleStore).
type Client struct {
	db     *sql.DB
	dbName string
}

// DB returns the underlying pool, for health checks and ad-hoc queries.
func (c *Client) DB() *sql.DB { return c.db }

// Close releases the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient opens a pooled connection, verifies it, and applies any
// pending migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("store connected", "host", cfg.Host, "database", cfg.Database)

	return &Client{db: db, dbName: cfg.Database}, nil
}

// NewClientFromDB wraps an already-open connection, skipping migrations
// (used by tests that migrate a testcontainers instance separately).
func NewClientFromDB(db *sql.DB, dbName string) *Client {
	return &Client{db: db, dbName: dbName}
}

func runMigrations(db *sql.DB, dbName string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found, binary built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Only close the source driver. Closing the migrate instance would also
	// close the database driver, which would Close() the shared *sql.DB.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}

	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && len(entry.Name()) > 4 && entry.Name()[len(entry.Name())-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}
