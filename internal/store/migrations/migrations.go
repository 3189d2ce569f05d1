// Package migrations embeds the catalog schema for each supported dialect and
// applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// FS contains one directory of goose SQL migrations per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dialect directory names, matching config.DriverPostgres and config.DriverSQLite.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// NewProvider returns a goose provider for the dialect's embedded migrations.
func NewProvider(dialect string, db *sql.DB) (*goose.Provider, error) {
	var gd goose.Dialect
	switch dialect {
	case Postgres:
		gd = goose.DialectPostgres
	case SQLite:
		gd = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	sub, err := fs.Sub(FS, dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	provider, err := goose.NewProvider(gd, db, sub)
	if err != nil {
		return nil, fmt.Errorf("migrations: new provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, dialect string, db *sql.DB) error {
	provider, err := NewProvider(dialect, db)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
