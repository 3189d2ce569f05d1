package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/collector/internal/store"
)

// RecordImportRun stores the outcome of one import.
func (s *Store) RecordImportRun(ctx context.Context, run store.ImportRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("record import run: invalid id %q: %w", run.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, source, status, created, updated, skipped, error_count, message, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: [16]byte(id), Valid: true}, run.Source, run.Status, run.Created, run.Updated, run.Skipped,
		run.ErrorCount, toPgText(run.Message), run.StartedAt, run.FinishedAt,
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
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, created, updated, skipped, error_count, message, started_at, finished_at
		 FROM import_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []store.ImportRun
	for rows.Next() {
		var (
			run     store.ImportRun
			id      pgtype.UUID
			message pgtype.Text
		)
		if err := rows.Scan(&id, &run.Source, &run.Status, &run.Created, &run.Updated, &run.Skipped,
			&run.ErrorCount, &message, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("list import runs: %w", err)
		}
		run.ID = uuid.UUID(id.Bytes).String()
		run.Message = message.String
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
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM cards)::int,
		(SELECT COUNT(DISTINCT set_id) FROM cards)::int,
		(SELECT COUNT(DISTINCT card_id) FROM collection_items)::int,
		(SELECT COALESCE(SUM(quantity), 0) FROM collection_items)::int,
		(SELECT COUNT(DISTINCT card_id) FROM collection_items WHERE for_trade)::int,
		(SELECT COUNT(*) FROM import_runs)::int`,
	).Scan(&st.Cards, &st.Sets, &st.OwnedCards, &st.TotalQuantity, &st.ForTrade, &st.Imports)
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
