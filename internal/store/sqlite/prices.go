package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JonMunkholm/collector/internal/store"
)

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// AddPriceQuote stores a manually entered price observation.
func (s *Store) AddPriceQuote(ctx context.Context, q store.PriceQuote) (store.PriceQuote, error) {
	if _, err := s.GetCard(ctx, q.CardID); err != nil {
		return store.PriceQuote{}, err
	}
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO price_quotes (card_id, source, currency, avg_price, min_price, max_price, url, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.CardID, q.Source, nullString(q.Currency), nullFloat(q.AvgPrice), nullFloat(q.MinPrice),
		nullFloat(q.MaxPrice), nullString(q.URL), toMillis(q.FetchedAt),
	)
	if err != nil {
		return store.PriceQuote{}, fmt.Errorf("add price quote: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.PriceQuote{}, fmt.Errorf("add price quote: %w", err)
	}
	q.ID = id
	q.FetchedAt = fromMillis(toMillis(q.FetchedAt))
	return q, nil
}

// ListPriceQuotes returns a card's quotes, newest first.
func (s *Store) ListPriceQuotes(ctx context.Context, cardID int64) ([]store.PriceQuote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, source, currency, avg_price, min_price, max_price, url, fetched_at
		 FROM price_quotes WHERE card_id = ? ORDER BY fetched_at DESC, id DESC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list price quotes: %w", err)
	}
	defer rows.Close()

	var quotes []store.PriceQuote
	for rows.Next() {
		var (
			q               store.PriceQuote
			currency, url   sql.NullString
			avg, minP, maxP sql.NullFloat64
			fetched         int64
		)
		if err := rows.Scan(&q.ID, &q.CardID, &q.Source, &currency, &avg, &minP, &maxP, &url, &fetched); err != nil {
			return nil, fmt.Errorf("list price quotes: %w", err)
		}
		q.Currency = currency.String
		q.URL = url.String
		q.AvgPrice = floatPtr(avg)
		q.MinPrice = floatPtr(minP)
		q.MaxPrice = floatPtr(maxP)
		q.FetchedAt = fromMillis(fetched)
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list price quotes: %w", err)
	}
	return quotes, nil
}
