package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/collector/internal/store"
)

// RecordImportRun stores the outcome of one import.
func (s *Store) RecordImportRun(ctx context.Context, run store.ImportRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source, status, created, updated, skipped, error_count, message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Status, run.Created, run.Updated, run.Skipped, run.ErrorCount,
		nullString(run.Message), toMillis(run.StartedAt), toMillis(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record import run: %w", mapError(err))
	}
	return nil
}

// ListImportRuns returns the most recent runs first.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]store.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, created, updated, skipped, error_count, message, started_at, finished_at
		 FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []store.ImportRun
	for rows.Next() {
		var (
			run               store.ImportRun
			message           sql.NullString
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Status, &run.Created, &run.Updated, &run.Skipped,
			&run.ErrorCount, &message, &started, &finished); err != nil {
			return nil, fmt.Errorf("list import runs: %w", err)
		}
		run.Message = message.String
		run.StartedAt = fromMillis(started)
		run.FinishedAt = fromMillis(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

// Stats returns catalog counters.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM cards),
		(SELECT COUNT(DISTINCT set_id) FROM cards),
		(SELECT COUNT(DISTINCT card_id) FROM collection_items),
		(SELECT COALESCE(SUM(quantity), 0) FROM collection_items),
		(SELECT COUNT(DISTINCT card_id) FROM collection_items WHERE for_trade = 1),
		(SELECT COUNT(*) FROM import_runs)`,
	).Scan(&st.Cards, &st.Sets, &st.OwnedCards, &st.TotalQuantity, &st.ForTrade, &st.Imports)
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
