// Package postgres provides a PostgreSQL-backed catalog store on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JonMunkholm/collector/internal/store"
	"github.com/JonMunkholm/collector/internal/store/migrations"
)

// PostgreSQL SQLSTATE codes.
const (
	uniqueViolation      = "23505"
	integrityClassPrefix = "23"
)

// Store persists the catalog in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New wraps an open pool. When migrate is set the embedded schema migrations
// are applied through a database/sql view of the pool.
func New(ctx context.Context, pool *pgxpool.Pool, migrate bool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if migrate {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(ctx, migrations.Postgres, db)
		_ = db.Close()
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// toPgText converts a string to pgtype.Text; empty means NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// mapError translates integrity violations into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
	}
	if strings.HasPrefix(pgErr.Code, integrityClassPrefix) {
		return fmt.Errorf("%w: %s", store.ErrConstraint, pgErr.Message)
	}
	return err
}

// Begin starts the transaction an import runs in.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &tx{tx: pgTx}, nil
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) FindCardByKey(ctx context.Context, setID, number string) (store.Card, error) {
	return getCard(ctx, t.tx, "c.set_id = $1 AND c.number = $2", setID, number)
}

func (t *tx) InsertCard(ctx context.Context, c *store.Card) error {
	return insertCard(ctx, t.tx, c)
}

func (t *tx) SaveCard(ctx context.Context, c *store.Card) error {
	return saveCard(ctx, t.tx, c)
}

func (t *tx) Savepoint(ctx context.Context, name string) error {
	return t.exec(ctx, "SAVEPOINT ", name)
}

func (t *tx) RollbackTo(ctx context.Context, name string) error {
	return t.exec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (t *tx) Release(ctx context.Context, name string) error {
	return t.exec(ctx, "RELEASE SAVEPOINT ", name)
}

func (t *tx) exec(ctx context.Context, stmt, name string) error {
	if err := store.CheckSavepoint(name); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, stmt+name); err != nil {
		return fmt.Errorf("%s%s: %w", strings.ToLower(stmt), name, err)
	}
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
