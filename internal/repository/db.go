package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres. State writes are small and serialized per
// chat, so the pool stays small.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 8
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func RunMigrations(databaseURL string, migrationsFS fs.FS) error {
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// OpenBlobStore picks Postgres when a database URL is configured and the
// JSON state file otherwise. The returned close func releases the pool.
func OpenBlobStore(ctx context.Context, databaseURL, stateFile string, migrationsFS fs.FS) (BlobStore, func(), error) {
	if databaseURL == "" {
		store, err := NewFileBlobStore(stateFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using file state store", "path", stateFile)
		return store, func() {}, nil
	}

	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := RunMigrations(databaseURL, migrationsFS); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("using postgres state store")
	return NewPostgresBlobStore(pool), pool.Close, nil
}
