package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/collector/internal/store"
)

// AddPriceQuote stores a manually entered price observation.
func (s *Store) AddPriceQuote(ctx context.Context, q store.PriceQuote) (store.PriceQuote, error) {
	if _, err := s.GetCard(ctx, q.CardID); err != nil {
		return store.PriceQuote{}, err
	}
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO price_quotes (card_id, source, currency, avg_price, min_price, max_price, url, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		q.CardID, q.Source, toPgText(q.Currency), q.AvgPrice, q.MinPrice, q.MaxPrice, toPgText(q.URL), q.FetchedAt,
	).Scan(&q.ID)
	if err != nil {
		return store.PriceQuote{}, fmt.Errorf("add price quote: %w", mapError(err))
	}
	return q, nil
}

// ListPriceQuotes returns a card's quotes, newest first.
func (s *Store) ListPriceQuotes(ctx context.Context, cardID int64) ([]store.PriceQuote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, card_id, source, currency, avg_price::float8, min_price::float8, max_price::float8, url, fetched_at
		 FROM price_quotes WHERE card_id = $1 ORDER BY fetched_at DESC, id DESC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list price quotes: %w", err)
	}
	defer rows.Close()

	var quotes []store.PriceQuote
	for rows.Next() {
		var (
			q             store.PriceQuote
			currency, url pgtype.Text
		)
		if err := rows.Scan(&q.ID, &q.CardID, &q.Source, &currency, &q.AvgPrice, &q.MinPrice, &q.MaxPrice,
			&url, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("list price quotes: %w", err)
		}
		q.Currency = currency.String
		q.URL = url.String
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list price quotes: %w", err)
	}
	return quotes, nil
}
