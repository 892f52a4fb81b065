// Package database opens the configured database/sql pool.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"tranquility/internal/platform/config"
	"tranquility/internal/storage"
)

// Open opens and pings a pool for cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if _, err := storage.DialectFor(cfg.Driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// OpenAndMigrate opens the pool and, when enabled, applies pending migrations.
func OpenAndMigrate(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, []string, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.AutoMigrate {
		return db, nil, nil
	}
	dialect, _ := storage.DialectFor(cfg.Driver)
	applied, err := storage.Migrate(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, applied, nil
}
