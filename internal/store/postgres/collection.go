package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/collector/internal/store"
)

const itemColumns = "ci.id, ci.card_id, ci.quantity, ci.condition, ci.for_trade, ci.notes, ci.created_at, ci.updated_at"

type itemScan struct {
	item      store.CollectionItem
	condition pgtype.Text
	notes     pgtype.Text
}

func (is *itemScan) targets() []any {
	return []any{&is.item.ID, &is.item.CardID, &is.item.Quantity, &is.condition, &is.item.ForTrade,
		&is.notes, &is.item.CreatedAt, &is.item.UpdatedAt}
}

func (is *itemScan) result() store.CollectionItem {
	item := is.item
	item.Condition = is.condition.String
	item.Notes = is.notes.String
	return item
}

func (s *Store) getItem(ctx context.Context, id int64) (store.CollectionItem, error) {
	var is itemScan
	err := s.pool.QueryRow(ctx, "SELECT "+itemColumns+" FROM collection_items ci WHERE ci.id = $1", id).
		Scan(is.targets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.CollectionItem{}, store.ErrNotFound
	}
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("get collection item: %w", err)
	}
	return is.result(), nil
}

// AddCollectionItem records owned copies of an existing card.
func (s *Store) AddCollectionItem(ctx context.Context, item store.CollectionItem) (store.CollectionItem, error) {
	if _, err := s.GetCard(ctx, item.CardID); err != nil {
		return store.CollectionItem{}, err
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO collection_items (card_id, quantity, condition, for_trade, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.CardID, item.Quantity, toPgText(item.Condition), item.ForTrade, toPgText(item.Notes),
	).Scan(&id)
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("add collection item: %w", mapError(err))
	}
	return s.getItem(ctx, id)
}

// ListCollection returns items with their cards, most recently touched first.
func (s *Store) ListCollection(ctx context.Context, onlyTrade bool) ([]store.CollectionItem, error) {
	query := "SELECT " + itemColumns + ", " + cardColumnsQualified + `, agg.qty, agg.trade
		FROM collection_items ci
		JOIN cards c ON c.id = ci.card_id
		JOIN (SELECT card_id, SUM(quantity)::int AS qty, BOOL_OR(for_trade) AS trade
		      FROM collection_items GROUP BY card_id) agg ON agg.card_id = c.id`
	if onlyTrade {
		query += " WHERE ci.for_trade"
	}
	query += " ORDER BY ci.updated_at DESC, ci.id DESC"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	var items []store.CollectionItem
	for rows.Next() {
		var (
			is itemScan
			cs cardScan
		)
		if err := rows.Scan(append(is.targets(), cs.targets()...)...); err != nil {
			return nil, fmt.Errorf("list collection: %w", err)
		}
		item := is.result()
		card := cs.result()
		item.Card = &card
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	return items, nil
}

// SetTradeFlag flips the trade flag on one item.
func (s *Store) SetTradeFlag(ctx context.Context, id int64, forTrade bool) (store.CollectionItem, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE collection_items SET for_trade = $1, updated_at = now() WHERE id = $2", forTrade, id)
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("set trade flag: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.CollectionItem{}, store.ErrNotFound
	}
	return s.getItem(ctx, id)
}

// DeleteCollectionItem removes one item.
func (s *Store) DeleteCollectionItem(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM collection_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete collection item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
