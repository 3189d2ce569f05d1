package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/collector/internal/store"
)

const itemColumns = "ci.id, ci.card_id, ci.quantity, ci.condition, ci.for_trade, ci.notes, ci.created_at, ci.updated_at"

func scanItem(row scanner, extra ...any) (store.CollectionItem, error) {
	var (
		item      store.CollectionItem
		condition sql.NullString
		notes     sql.NullString
		forTrade  int64
		created   int64
		updated   int64
	)
	dest := append([]any{&item.ID, &item.CardID, &item.Quantity, &condition, &forTrade, &notes, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return store.CollectionItem{}, err
	}
	item.Condition = condition.String
	item.Notes = notes.String
	item.ForTrade = forTrade != 0
	item.CreatedAt = fromMillis(created)
	item.UpdatedAt = fromMillis(updated)
	return item, nil
}

func (s *Store) getItem(ctx context.Context, id int64) (store.CollectionItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM collection_items ci WHERE ci.id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.CollectionItem{}, store.ErrNotFound
	}
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("get collection item: %w", err)
	}
	return item, nil
}

// AddCollectionItem records owned copies of an existing card.
func (s *Store) AddCollectionItem(ctx context.Context, item store.CollectionItem) (store.CollectionItem, error) {
	if _, err := s.GetCard(ctx, item.CardID); err != nil {
		return store.CollectionItem{}, err
	}
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_items (card_id, quantity, condition, for_trade, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.CardID, item.Quantity, nullString(item.Condition), boolInt(item.ForTrade), nullString(item.Notes), now, now,
	)
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("add collection item: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("add collection item: %w", err)
	}
	return s.getItem(ctx, id)
}

// ListCollection returns items with their cards, most recently touched first.
func (s *Store) ListCollection(ctx context.Context, onlyTrade bool) ([]store.CollectionItem, error) {
	cardCols := make([]string, 0, len(store.CardColumns))
	for _, col := range store.CardColumns {
		cardCols = append(cardCols, "c."+col)
	}
	query := "SELECT " + itemColumns + ", c.id, " + strings.Join(cardCols, ", ") +
		`, c.created_at, c.updated_at, agg.qty, agg.trade
		FROM collection_items ci
		JOIN cards c ON c.id = ci.card_id
		JOIN (SELECT card_id, SUM(quantity) AS qty, MAX(for_trade) AS trade
		      FROM collection_items GROUP BY card_id) agg ON agg.card_id = c.id`
	if onlyTrade {
		query += " WHERE ci.for_trade = 1"
	}
	query += " ORDER BY ci.updated_at DESC, ci.id DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	var items []store.CollectionItem
	for rows.Next() {
		cs := &cardScan{}
		item, err := scanItem(rows, cs.targets()...)
		if err != nil {
			return nil, fmt.Errorf("list collection: %w", err)
		}
		card := cs.card()
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
	res, err := s.db.ExecContext(ctx,
		"UPDATE collection_items SET for_trade = ?, updated_at = ? WHERE id = ?",
		boolInt(forTrade), toMillis(time.Now()), id,
	)
	if err != nil {
		return store.CollectionItem{}, fmt.Errorf("set trade flag: %w", mapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.CollectionItem{}, store.ErrNotFound
	}
	return s.getItem(ctx, id)
}

// DeleteCollectionItem removes one item.
func (s *Store) DeleteCollectionItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collection_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete collection item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
