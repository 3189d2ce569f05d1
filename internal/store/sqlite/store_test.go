package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/collector/internal/store"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "collector.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCard() store.Card {
	return store.Card{
		SetID:       "sv1",
		Number:      "4",
		Name:        "Charmander",
		HP:          "70",
		Types:       `["Fire"]`,
		Rarity:      "Common",
		SetName:     "Scarlet & Violet",
		Artist:      "Mitsuhiro Arita",
		AbilityName: "Blaze",
		AbilityText: "Burns things.",
		Attacks:     `[{"damage":"10","name":"Scratch"}]`,
		Weaknesses:  `["Water"]`,
		Resistances: `[]`,
		RetreatCost: `["Colorless"]`,
		ImagePath:   "sv1_4.png",
		ImageURL:    "https://example.test/sv1/4.png",
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ", true)
	assert.Error(t, err)
}

func TestCreateGetCardRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	input := sampleCard()
	created, err := s.CreateCard(ctx, input)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := s.GetCard(ctx, created.ID)
	require.NoError(t, err)

	want := input
	want.ID = created.ID
	want.CreatedAt = got.CreatedAt
	want.UpdatedAt = got.UpdatedAt
	assert.Equal(t, want, got)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.Owned())
}

func TestCreateCardDuplicateKeyIsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	_, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)

	_, err = s.CreateCard(ctx, sampleCard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConflict), "err = %v", err)
}

func TestGetCardNotFound(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)

	_, err := s.GetCard(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateCardPatchKeepsOtherFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	created, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)

	hp := "80"
	updated, err := s.UpdateCard(ctx, created.ID, store.CardPatch{HP: &hp})
	require.NoError(t, err)
	assert.Equal(t, "80", updated.HP)
	assert.Equal(t, "Charmander", updated.Name)
	assert.Equal(t, `["Fire"]`, updated.Types)

	_, err = s.UpdateCard(ctx, 12345, store.CardPatch{HP: &hp})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListCardsFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	for _, c := range []store.Card{
		{SetID: "sv1", Number: "1", Name: "Bulbasaur", Types: `["Grass"]`, Rarity: "Common"},
		{SetID: "sv1", Number: "4", Name: "Charmander", Types: `["Fire"]`, Rarity: "Common"},
		{SetID: "sv2", Number: "6", Name: "Charizard", Types: `["Fire"]`, Rarity: "Rare"},
	} {
		_, err := s.CreateCard(ctx, c)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter store.CardFilter
		want   []string
	}{
		{"all ordered by name", store.CardFilter{}, []string{"Bulbasaur", "Charizard", "Charmander"}},
		{"query is case-insensitive", store.CardFilter{Query: "CHAR"}, []string{"Charizard", "Charmander"}},
		{"set", store.CardFilter{SetID: "sv1"}, []string{"Bulbasaur", "Charmander"}},
		{"rarity", store.CardFilter{Rarity: "Rare"}, []string{"Charizard"}},
		{"type", store.CardFilter{Type: "fire"}, []string{"Charizard", "Charmander"}},
		{"number", store.CardFilter{Number: "1"}, []string{"Bulbasaur"}},
		{"limit offset", store.CardFilter{Limit: 1, Offset: 1}, []string{"Charizard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := s.ListCards(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, c := range cards {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCollectionOwnershipAndCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	card, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)

	first, err := s.AddCollectionItem(ctx, store.CollectionItem{CardID: card.ID, Quantity: 2, Condition: "NM"})
	require.NoError(t, err)
	_, err = s.AddCollectionItem(ctx, store.CollectionItem{CardID: card.ID, Quantity: 1, ForTrade: true})
	require.NoError(t, err)

	got, err := s.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.True(t, got.Owned())
	assert.True(t, got.ForTrade)

	items, err := s.ListCollection(ctx, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Card)
	assert.Equal(t, "Charmander", items[0].Card.Name)
	assert.Equal(t, 3, items[0].Card.Quantity)

	flagged, err := s.SetTradeFlag(ctx, first.ID, true)
	require.NoError(t, err)
	assert.True(t, flagged.ForTrade)

	items, err = s.ListCollection(ctx, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = s.AddPriceQuote(ctx, store.PriceQuote{CardID: card.ID, Source: "manual", Currency: "EUR"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCard(ctx, card.ID))

	items, err = s.ListCollection(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, items)

	quotes, err := s.ListPriceQuotes(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestAddCollectionItemRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	_, err := s.AddCollectionItem(ctx, store.CollectionItem{CardID: 42, Quantity: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	card, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)

	_, err = s.AddCollectionItem(ctx, store.CollectionItem{CardID: card.ID, Quantity: 0})
	assert.ErrorIs(t, err, store.ErrConstraint)

	_, err = s.SetTradeFlag(ctx, 999, true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPriceQuotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	card, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)

	avg := 1.25
	q, err := s.AddPriceQuote(ctx, store.PriceQuote{CardID: card.ID, Source: "manual", AvgPrice: &avg})
	require.NoError(t, err)
	assert.NotZero(t, q.ID)

	neg := -1.0
	_, err = s.AddPriceQuote(ctx, store.PriceQuote{CardID: card.ID, Source: "manual", MinPrice: &neg})
	assert.ErrorIs(t, err, store.ErrConstraint)

	quotes, err := s.ListPriceQuotes(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.NotNil(t, quotes[0].AvgPrice)
	assert.InDelta(t, 1.25, *quotes[0].AvgPrice, 0.0001)
	assert.Nil(t, quotes[0].MinPrice)
}

func TestTxSavepointRollbackKeepsEarlierWork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	first := sampleCard()
	require.NoError(t, tx.Savepoint(ctx, "sp_1"))
	require.NoError(t, tx.InsertCard(ctx, &first))
	require.NoError(t, tx.Release(ctx, "sp_1"))

	dup := sampleCard()
	require.NoError(t, tx.Savepoint(ctx, "sp_2"))
	err = tx.InsertCard(ctx, &dup)
	require.ErrorIs(t, err, store.ErrConflict)
	require.True(t, store.IsIntegrityViolation(err))
	require.NoError(t, tx.RollbackTo(ctx, "sp_2"))
	require.NoError(t, tx.Release(ctx, "sp_2"))

	found, err := tx.FindCardByKey(ctx, "sv1", "4")
	require.NoError(t, err)
	found.HP = "90"
	require.NoError(t, tx.SaveCard(ctx, &found))

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	got, err := s.GetCard(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "90", got.HP)

	assert.Error(t, tx.Savepoint(ctx, "bad name; DROP TABLE cards"))
}

func TestImportRunsAndStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTempStore(t)

	card, err := s.CreateCard(ctx, sampleCard())
	require.NoError(t, err)
	_, err = s.AddCollectionItem(ctx, store.CollectionItem{CardID: card.ID, Quantity: 3, ForTrade: true})
	require.NoError(t, err)

	run := store.ImportRun{ID: "run-1", Source: "cards.csv", Status: store.RunCompleted, Created: 1}
	require.NoError(t, s.RecordImportRun(ctx, run))

	runs, err := s.ListImportRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cards.csv", runs[0].Source)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Cards: 1, Sets: 1, OwnedCards: 1, TotalQuantity: 3, ForTrade: 1, Imports: 1}, st)
}
