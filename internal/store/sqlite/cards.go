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

var (
	cardSelect = func() string {
		cols := make([]string, 0, len(store.CardColumns)+3)
		cols = append(cols, "c.id")
		for _, col := range store.CardColumns {
			cols = append(cols, "c."+col)
		}
		cols = append(cols, "c.created_at", "c.updated_at",
			"COALESCE(SUM(ci.quantity), 0)", "COALESCE(MAX(ci.for_trade), 0)")
		return "SELECT " + strings.Join(cols, ", ") +
			" FROM cards c LEFT JOIN collection_items ci ON ci.card_id = c.id"
	}()

	cardInsert = "INSERT INTO cards (" + strings.Join(store.CardColumns, ", ") +
		", created_at, updated_at) VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(store.CardColumns)+2), ", ") + ")"

	cardUpdate = "UPDATE cards SET " + strings.Join(store.CardColumns, " = ?, ") +
		" = ?, updated_at = ? WHERE id = ?"
)

type scanner interface {
	Scan(dest ...any) error
}

// cardScan holds scan targets for one card row including its collection
// aggregates.
type cardScan struct {
	id       int64
	nulls    [16]sql.NullString
	created  int64
	updated  int64
	quantity int
	forTrade int64
}

func (cs *cardScan) targets() []any {
	t := make([]any, 0, len(cs.nulls)+5)
	t = append(t, &cs.id)
	for i := range cs.nulls {
		t = append(t, &cs.nulls[i])
	}
	return append(t, &cs.created, &cs.updated, &cs.quantity, &cs.forTrade)
}

func (cs *cardScan) card() store.Card {
	c := store.Card{
		ID:        cs.id,
		CreatedAt: fromMillis(cs.created),
		UpdatedAt: fromMillis(cs.updated),
		Quantity:  cs.quantity,
		ForTrade:  cs.forTrade != 0,
	}
	for i, f := range c.Fields() {
		*f = cs.nulls[i].String
	}
	return c
}

func scanCard(row scanner) (store.Card, error) {
	var cs cardScan
	if err := row.Scan(cs.targets()...); err != nil {
		return store.Card{}, err
	}
	return cs.card(), nil
}

func cardArgs(c *store.Card) []any {
	fields := c.Fields()
	args := make([]any, 0, len(fields)+3)
	for i, f := range fields {
		if i < store.RequiredCardColumns {
			args = append(args, *f)
			continue
		}
		args = append(args, nullString(*f))
	}
	return args
}

func getCard(ctx context.Context, q queryer, where string, args ...any) (store.Card, error) {
	row := q.QueryRowContext(ctx, cardSelect+" WHERE "+where+" GROUP BY c.id", args...)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Card{}, store.ErrNotFound
	}
	if err != nil {
		return store.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func insertCard(ctx context.Context, q queryer, c *store.Card) error {
	now := time.Now().UTC()
	args := append(cardArgs(c), toMillis(now), toMillis(now))
	res, err := q.ExecContext(ctx, cardInsert, args...)
	if err != nil {
		return fmt.Errorf("insert card: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	c.ID = id
	c.CreatedAt = time.UnixMilli(toMillis(now)).UTC()
	c.UpdatedAt = c.CreatedAt
	return nil
}

func saveCard(ctx context.Context, q queryer, c *store.Card) error {
	now := time.Now().UTC()
	args := append(cardArgs(c), toMillis(now), c.ID)
	res, err := q.ExecContext(ctx, cardUpdate, args...)
	if err != nil {
		return fmt.Errorf("update card: %w", mapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	c.UpdatedAt = time.UnixMilli(toMillis(now)).UTC()
	return nil
}

// ListCards returns cards matching f ordered by name.
func (s *Store) ListCards(ctx context.Context, f store.CardFilter) ([]store.Card, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, "LOWER(c.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
	}
	if f.SetID != "" {
		where = append(where, "c.set_id = ?")
		args = append(args, f.SetID)
	}
	if f.Rarity != "" {
		where = append(where, "c.rarity = ?")
		args = append(args, f.Rarity)
	}
	if f.Type != "" {
		where = append(where, "LOWER(c.types) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Type)+"%")
	}
	if f.Number != "" {
		where = append(where, "c.number = ?")
		args = append(args, f.Number)
	}

	query := cardSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " GROUP BY c.id ORDER BY c.name ASC, c.id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []store.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("list cards: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// GetCard returns one card by ID.
func (s *Store) GetCard(ctx context.Context, id int64) (store.Card, error) {
	return getCard(ctx, s.db, "c.id = ?", id)
}

// CreateCard inserts a card. A duplicate (set_id, number) is ErrConflict.
func (s *Store) CreateCard(ctx context.Context, c store.Card) (store.Card, error) {
	if err := insertCard(ctx, s.db, &c); err != nil {
		return store.Card{}, err
	}
	return s.GetCard(ctx, c.ID)
}

// UpdateCard applies p to the stored card.
func (s *Store) UpdateCard(ctx context.Context, id int64, p store.CardPatch) (store.Card, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Card{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	c, err := getCard(ctx, sqlTx, "c.id = ?", id)
	if err != nil {
		return store.Card{}, err
	}
	p.Apply(&c)
	if err := saveCard(ctx, sqlTx, &c); err != nil {
		return store.Card{}, err
	}
	if err := sqlTx.Commit(); err != nil {
		return store.Card{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetCard(ctx, id)
}

// DeleteCard removes a card; foreign keys cascade to items and quotes.
func (s *Store) DeleteCard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete card: %w", mapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
