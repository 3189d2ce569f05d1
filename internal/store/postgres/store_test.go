package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/collector/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, store.ErrConflict},
		{"check", &pgconn.PgError{Code: "23514", Message: "violates check"}, store.ErrConstraint},
		{"foreign key", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503"}), store.ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	syntax := &pgconn.PgError{Code: "42601"}
	got := mapError(syntax)
	assert.False(t, store.IsIntegrityViolation(got))
	assert.True(t, errors.Is(got, syntax))
	assert.Nil(t, mapError(nil))
}

// openTestStore connects to COLLECTOR_TEST_POSTGRES_URL, skipping when unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("COLLECTOR_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("COLLECTOR_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := New(ctx, pool, true)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "TRUNCATE cards, collection_items, price_quotes, import_runs RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return s
}

func TestStoreAgainstPostgres(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	card, err := s.CreateCard(ctx, store.Card{SetID: "sv1", Number: "4", Name: "Charmander", Types: `["Fire"]`})
	require.NoError(t, err)

	_, err = s.CreateCard(ctx, store.Card{SetID: "sv1", Number: "4", Name: "Again"})
	assert.ErrorIs(t, err, store.ErrConflict)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	dup := store.Card{SetID: "sv1", Number: "4", Name: "Dup"}
	require.NoError(t, tx.Savepoint(ctx, "sp_1"))
	assert.ErrorIs(t, tx.InsertCard(ctx, &dup), store.ErrConflict)
	require.NoError(t, tx.RollbackTo(ctx, "sp_1"))
	found, err := tx.FindCardByKey(ctx, "sv1", "4")
	require.NoError(t, err)
	found.HP = "70"
	require.NoError(t, tx.SaveCard(ctx, &found))
	require.NoError(t, tx.Commit(ctx))

	_, err = s.AddCollectionItem(ctx, store.CollectionItem{CardID: card.ID, Quantity: 2, ForTrade: true})
	require.NoError(t, err)
	got, err := s.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", got.HP)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, got.ForTrade)

	require.NoError(t, s.RecordImportRun(ctx, store.ImportRun{ID: uuid.NewString(), Source: "x.csv", Status: store.RunCompleted}))
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Imports)

	require.NoError(t, s.DeleteCard(ctx, card.ID))
	items, err := s.ListCollection(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, items)
}
