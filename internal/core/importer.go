package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/store"
)

// Result summarizes one import.
type Result struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped int          `json:"skipped"`
	Errors  []RowFailure `json:"errors"`
}

// RowFailure is the recorded error of one skipped row.
type RowFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Beginner opens the transaction an import runs in.
type Beginner interface {
	Begin(ctx context.Context) (store.Tx, error)
}

// Importer loads a CSV file of cards into the store.
//
// The whole file runs in one transaction. Rows that are missing their key or
// name, or that the store rejects with an integrity violation, are skipped
// and reported; any other failure rolls the whole import back.
type Importer struct {
	db     Beginner
	reader *Reader
	upsert *upserter
	logger *slog.Logger
}

// NewImporter creates an importer writing to db. images may be nil.
func NewImporter(db Beginner, images ImageResolver, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		db:     db,
		reader: NewReader(logger),
		upsert: &upserter{normalizer: NewNormalizer(images), logger: logger},
		logger: logger,
	}
}

// ImportFile imports the CSV file at path. It fails with ErrFileNotFound
// before touching the store when path does not exist.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	logger := logging.WithFields(ctx, im.logger, "path", path)
	start := time.Now()

	rows, err := im.reader.ReadRows(path)
	if err != nil {
		return nil, err
	}

	tx, err := im.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			logger.Error("rollback import", "error", err)
		}
	}()

	res := &Result{Errors: []RowFailure{}}
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import interrupted at row %d: %w", row.Index, err)
		}

		outcome, err := im.upsert.apply(ctx, tx, row)
		if err != nil {
			rowErr, ok := AsRowError(err)
			if !ok {
				return nil, fmt.Errorf("row %d: %w", row.Index, err)
			}
			res.Skipped++
			res.Errors = append(res.Errors, RowFailure{Row: rowErr.Row, Error: rowErr.Msg})
			continue
		}
		switch outcome {
		case OutcomeCreated:
			res.Created++
		case OutcomeUpdated:
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	logger.Info("import finished",
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"duration", time.Since(start),
	)
	return res, nil
}
