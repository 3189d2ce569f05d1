package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/collector/internal/store"
)

var (
	cardColumnsQualified = func() string {
		cols := make([]string, 0, len(store.CardColumns)+3)
		cols = append(cols, "c.id")
		for _, col := range store.CardColumns {
			cols = append(cols, "c."+col)
		}
		cols = append(cols, "c.created_at", "c.updated_at")
		return strings.Join(cols, ", ")
	}()

	cardSelect = "SELECT " + cardColumnsQualified +
		", COALESCE(SUM(ci.quantity), 0)::int, COALESCE(BOOL_OR(ci.for_trade), false)" +
		" FROM cards c LEFT JOIN collection_items ci ON ci.card_id = c.id"

	cardInsert = func() string {
		ph := make([]string, len(store.CardColumns))
		for i := range ph {
			ph[i] = "$" + strconv.Itoa(i+1)
		}
		return "INSERT INTO cards (" + strings.Join(store.CardColumns, ", ") + ") VALUES (" +
			strings.Join(ph, ", ") + ") RETURNING id, created_at, updated_at"
	}()

	cardUpdate = func() string {
		sets := make([]string, len(store.CardColumns))
		for i, col := range store.CardColumns {
			sets[i] = col + " = $" + strconv.Itoa(i+1)
		}
		return "UPDATE cards SET " + strings.Join(sets, ", ") + ", updated_at = now() WHERE id = $" +
			strconv.Itoa(len(store.CardColumns)+1) + " RETURNING updated_at"
	}()
)

// cardScan holds scan targets for one card row including its collection
// aggregates.
type cardScan struct {
	card  store.Card
	texts [16]pgtype.Text
}

func (cs *cardScan) targets() []any {
	t := make([]any, 0, len(cs.texts)+5)
	t = append(t, &cs.card.ID)
	for i := range cs.texts {
		t = append(t, &cs.texts[i])
	}
	return append(t, &cs.card.CreatedAt, &cs.card.UpdatedAt, &cs.card.Quantity, &cs.card.ForTrade)
}

func (cs *cardScan) result() store.Card {
	c := cs.card
	for i, f := range c.Fields() {
		*f = cs.texts[i].String
	}
	return c
}

func cardArgs(c *store.Card) []any {
	fields := c.Fields()
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		if i < store.RequiredCardColumns {
			args = append(args, *f)
			continue
		}
		args = append(args, toPgText(*f))
	}
	return args
}

func getCard(ctx context.Context, q querier, where string, args ...any) (store.Card, error) {
	var cs cardScan
	err := q.QueryRow(ctx, cardSelect+" WHERE "+where+" GROUP BY c.id", args...).Scan(cs.targets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Card{}, store.ErrNotFound
	}
	if err != nil {
		return store.Card{}, fmt.Errorf("get card: %w", err)
	}
	return cs.result(), nil
}

func insertCard(ctx context.Context, q querier, c *store.Card) error {
	err := q.QueryRow(ctx, cardInsert, cardArgs(c)...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert card: %w", mapError(err))
	}
	return nil
}

func saveCard(ctx context.Context, q querier, c *store.Card) error {
	args := append(cardArgs(c), c.ID)
	err := q.QueryRow(ctx, cardUpdate, args...).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update card: %w", mapError(err))
	}
	return nil
}

// ListCards returns cards matching f ordered by name.
func (s *Store) ListCards(ctx context.Context, f store.CardFilter) ([]store.Card, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Query != "" {
		where = append(where, "c.name ILIKE "+arg("%"+f.Query+"%"))
	}
	if f.SetID != "" {
		where = append(where, "c.set_id = "+arg(f.SetID))
	}
	if f.Rarity != "" {
		where = append(where, "c.rarity = "+arg(f.Rarity))
	}
	if f.Type != "" {
		where = append(where, "c.types ILIKE "+arg("%"+f.Type+"%"))
	}
	if f.Number != "" {
		where = append(where, "c.number = "+arg(f.Number))
	}

	query := cardSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY c.id ORDER BY c.name ASC, c.id ASC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	query += " OFFSET " + arg(max(f.Offset, 0))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []store.Card
	for rows.Next() {
		var cs cardScan
		if err := rows.Scan(cs.targets()...); err != nil {
			return nil, fmt.Errorf("list cards: %w", err)
		}
		cards = append(cards, cs.result())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// GetCard returns one card by ID.
func (s *Store) GetCard(ctx context.Context, id int64) (store.Card, error) {
	return getCard(ctx, s.pool, "c.id = $1", id)
}

// CreateCard inserts a card. A duplicate (set_id, number) is ErrConflict.
func (s *Store) CreateCard(ctx context.Context, c store.Card) (store.Card, error) {
	if err := insertCard(ctx, s.pool, &c); err != nil {
		return store.Card{}, err
	}
	return s.GetCard(ctx, c.ID)
}

// UpdateCard applies p to the stored card.
func (s *Store) UpdateCard(ctx context.Context, id int64, p store.CardPatch) (store.Card, error) {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Card{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer pgTx.Rollback(ctx)

	c, err := getCard(ctx, pgTx, "c.id = $1", id)
	if err != nil {
		return store.Card{}, err
	}
	p.Apply(&c)
	if err := saveCard(ctx, pgTx, &c); err != nil {
		return store.Card{}, err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return store.Card{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetCard(ctx, id)
}

// DeleteCard removes a card; foreign keys cascade to items and quotes.
func (s *Store) DeleteCard(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM cards WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete card: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
