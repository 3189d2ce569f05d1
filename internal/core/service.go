package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/store"
)

// Card listing bounds.
const (
	DefaultCardLimit = 50
	MaxCardLimit     = 500
)

// DefaultImportRunLimit is how many import runs the history shows.
const DefaultImportRunLimit = 20

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyFile    = errors.New("empty file")
)

// Service is the entry point for the web layer and the commands. It wraps the
// importer with import serialization, timeouts and run history, and exposes
// the catalog operations with payload validation.
type Service struct {
	store    store.Store
	importer *Importer
	limiter  *ImportLimiter
	cfg      config.ImportConfig
	logger   *slog.Logger

	now func() time.Time
}

// NewService creates a Service. A nil limiter is built from cfg.
func NewService(st store.Store, importer *Importer, limiter *ImportLimiter, cfg config.ImportConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait)
	}
	return &Service{
		store:    st,
		importer: importer,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Limiter exposes the import limiter for shutdown draining and status.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ImportFile imports a CSV file that already lives on the server.
func (s *Service) ImportFile(ctx context.Context, path string) (*Result, error) {
	return s.runImport(ctx, filepath.Base(path), path)
}

// ImportUpload stores r in the upload directory, imports it and removes it.
// Uploads larger than the configured maximum fail with ErrFileTooLarge.
func (s *Service) ImportUpload(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	tmp, err := os.CreateTemp(s.cfg.UploadDir, "import-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove upload file", "path", tmpPath, "error", err)
		}
	}()

	src := r
	if s.cfg.MaxFileSize > 0 {
		src = io.LimitReader(r, s.cfg.MaxFileSize+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if s.cfg.MaxFileSize > 0 && n > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.cfg.MaxFileSize)
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}

	if filename == "" {
		filename = "upload.csv"
	}
	return s.runImport(ctx, filepath.Base(filename), tmpPath)
}

// runImport holds an import slot for the duration of one import, bounds it
// with the configured timeout and records the run.
func (s *Service) runImport(ctx context.Context, source, path string) (*Result, error) {
	var res *Result
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}

		run := store.ImportRun{
			ID:        uuid.NewString(),
			Source:    source,
			StartedAt: s.now(),
		}

		var err error
		res, err = s.importer.ImportFile(ctx, path)

		run.FinishedAt = s.now()
		if err != nil {
			run.Status = store.RunFailed
			run.Message = err.Error()
		} else {
			run.Status = store.RunCompleted
			run.Created = res.Created
			run.Updated = res.Updated
			run.Skipped = res.Skipped
			run.ErrorCount = len(res.Errors)
		}
		if recErr := s.store.RecordImportRun(context.WithoutCancel(ctx), run); recErr != nil {
			logging.WithFields(ctx, s.logger, "run_id", run.ID, "source", source).
				Warn("record import run", "error", recErr)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListImportRuns returns the most recent import runs, newest first.
func (s *Service) ListImportRuns(ctx context.Context, limit int) ([]store.ImportRun, error) {
	if limit <= 0 {
		limit = DefaultImportRunLimit
	}
	return s.store.ListImportRuns(ctx, limit)
}

// ListCards returns cards ordered by name. The limit defaults to
// DefaultCardLimit and is capped at MaxCardLimit.
func (s *Service) ListCards(ctx context.Context, f store.CardFilter) ([]store.Card, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultCardLimit
	case f.Limit > MaxCardLimit:
		f.Limit = MaxCardLimit
	}
	f.Offset = max(f.Offset, 0)
	return s.store.ListCards(ctx, f)
}

// CardDetail is a card together with its price quotes.
type CardDetail struct {
	Card   store.Card
	Prices []store.PriceQuote
}

// GetCard returns a card and its price quotes.
func (s *Service) GetCard(ctx context.Context, id int64) (CardDetail, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return CardDetail{}, fmt.Errorf("get card %d: %w", id, notFound(err, ErrCardNotFound))
	}
	prices, err := s.store.ListPriceQuotes(ctx, id)
	if err != nil {
		return CardDetail{}, fmt.Errorf("list prices for card %d: %w", id, err)
	}
	return CardDetail{Card: card, Prices: prices}, nil
}

// CreateCard adds a card by hand. A duplicate (set_id, number) fails with
// store.ErrConflict; unlike an import it never updates the existing card.
func (s *Service) CreateCard(ctx context.Context, in CardInput) (store.Card, error) {
	in.trim()
	if err := ValidateStruct(in); err != nil {
		return store.Card{}, err
	}
	card, err := s.store.CreateCard(ctx, in.Card())
	if err != nil {
		return store.Card{}, fmt.Errorf("create card %s/%s: %w", in.SetID, in.Number, err)
	}
	logging.Enrich(ctx, s.logger).Info("card created",
		"card_id", card.ID,
		"set_id", card.SetID,
		"number", card.Number,
	)
	return card, nil
}

// UpdateCard applies a partial update.
func (s *Service) UpdateCard(ctx context.Context, id int64, upd CardUpdate) (store.Card, error) {
	upd.trim()
	if err := ValidateStruct(upd); err != nil {
		return store.Card{}, err
	}
	patch := upd.Patch()
	var (
		card store.Card
		err  error
	)
	if patch.IsEmpty() {
		card, err = s.store.GetCard(ctx, id)
	} else {
		card, err = s.store.UpdateCard(ctx, id, patch)
	}
	if err != nil {
		return store.Card{}, fmt.Errorf("update card %d: %w", id, notFound(err, ErrCardNotFound))
	}
	return card, nil
}

// DeleteCard removes a card with its collection items and price quotes.
func (s *Service) DeleteCard(ctx context.Context, id int64) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card %d: %w", id, notFound(err, ErrCardNotFound))
	}
	logging.Enrich(ctx, s.logger).Info("card deleted", "card_id", id)
	return nil
}

// AddCollectionItem records owned copies of a card.
func (s *Service) AddCollectionItem(ctx context.Context, in CollectionInput) (store.CollectionItem, error) {
	if err := ValidateStruct(in); err != nil {
		return store.CollectionItem{}, err
	}
	item, err := s.store.AddCollectionItem(ctx, in.Item())
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("add card %d to collection: %w", in.CardID, notFound(err, ErrCardNotFound))
	}
	return item, nil
}

// ListCollection returns collection items with their cards, most recently
// updated first.
func (s *Service) ListCollection(ctx context.Context, onlyTrade bool) ([]store.CollectionItem, error) {
	return s.store.ListCollection(ctx, onlyTrade)
}

// SetTradeFlag marks a collection item as available for trade or not.
func (s *Service) SetTradeFlag(ctx context.Context, id int64, forTrade bool) (store.CollectionItem, error) {
	item, err := s.store.SetTradeFlag(ctx, id, forTrade)
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("set trade flag on item %d: %w", id, notFound(err, ErrItemNotFound))
	}
	return item, nil
}

// DeleteCollectionItem removes a collection item.
func (s *Service) DeleteCollectionItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteCollectionItem(ctx, id); err != nil {
		return fmt.Errorf("delete collection item %d: %w", id, notFound(err, ErrItemNotFound))
	}
	return nil
}

// AddPriceQuote records a manual price observation for a card.
func (s *Service) AddPriceQuote(ctx context.Context, cardID int64, in PriceInput) (store.PriceQuote, error) {
	if err := ValidateStruct(in); err != nil {
		return store.PriceQuote{}, err
	}
	if err := in.validateRange(); err != nil {
		return store.PriceQuote{}, err
	}
	if _, err := s.store.GetCard(ctx, cardID); err != nil {
		return store.PriceQuote{}, fmt.Errorf("get card %d: %w", cardID, notFound(err, ErrCardNotFound))
	}
	q, err := s.store.AddPriceQuote(ctx, in.Quote(cardID, s.now()))
	if err != nil {
		return store.PriceQuote{}, fmt.Errorf("add price for card %d: %w", cardID, err)
	}
	return q, nil
}

// ListPriceQuotes returns a card's price quotes.
func (s *Service) ListPriceQuotes(ctx context.Context, cardID int64) ([]store.PriceQuote, error) {
	if _, err := s.store.GetCard(ctx, cardID); err != nil {
		return nil, fmt.Errorf("get card %d: %w", cardID, notFound(err, ErrCardNotFound))
	}
	return s.store.ListPriceQuotes(ctx, cardID)
}

// Stats returns catalog counters.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

// notFound replaces a bare store.ErrNotFound with a more specific sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}
