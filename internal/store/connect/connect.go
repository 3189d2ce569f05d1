// Package connect opens the catalog store selected by configuration.
package connect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/store"
	"github.com/JonMunkholm/collector/internal/store/migrations"
	"github.com/JonMunkholm/collector/internal/store/postgres"
	"github.com/JonMunkholm/collector/internal/store/sqlite"
)

// Open connects to the store named by cfg.URL and, when cfg.AutoMigrate is set,
// applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver() {
	case config.DriverSQLite:
		path := cfg.SQLitePath()
		s, err := sqlite.Open(ctx, path, cfg.AutoMigrate)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to database", "driver", config.DriverSQLite, "path", path)
		return s, nil

	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s, err := postgres.New(ctx, pool, cfg.AutoMigrate)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if u, err := url.Parse(cfg.URL); err == nil {
			logger.Info("connected to database", "driver", config.DriverPostgres, "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			logger.Info("connected to database", "driver", config.DriverPostgres)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported database url scheme")
	}
}

// NewPool parses the postgres URL, applies pool limits and verifies the
// connection.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenSQL returns a database/sql handle for the configured database and the
// migrations dialect it speaks. Migrations are never applied here. Call closeFn
// when done.
func OpenSQL(ctx context.Context, cfg config.DatabaseConfig) (db *sql.DB, dialect string, closeFn func(), err error) {
	switch cfg.Driver() {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath(), false)
		if err != nil {
			return nil, "", nil, err
		}
		return s.DB(), migrations.SQLite, func() { _ = s.Close() }, nil

	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, "", nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		return db, migrations.Postgres, func() {
			_ = db.Close()
			pool.Close()
		}, nil

	default:
		return nil, "", nil, fmt.Errorf("unsupported database url scheme")
	}
}
