package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/store"
)

func newTestService(t *testing.T, cfg config.ImportConfig) (*Service, store.Store) {
	t.Helper()
	st := openTestStore(t)
	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	im := NewImporter(st, nil, logging.Discard())
	return NewService(st, im, nil, cfg, logging.Discard()), st
}

func ptr[T any](v T) *T { return &v }

func TestService_ImportFileRecordsRun(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{Timeout: time.Minute})
	ctx := context.Background()

	res, err := svc.ImportFile(ctx, writeCSV(t, sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	_, err = svc.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	runs, err := svc.ListImportRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byStatus := map[string]store.ImportRun{}
	for _, run := range runs {
		byStatus[run.Status] = run
		_, parseErr := uuid.Parse(run.ID)
		assert.NoError(t, parseErr)
	}
	done := byStatus[store.RunCompleted]
	assert.Equal(t, "cards.csv", done.Source)
	assert.Equal(t, 2, done.Created)
	assert.Equal(t, 3, done.Skipped)
	assert.Equal(t, 3, done.ErrorCount)

	failed := byStatus[store.RunFailed]
	assert.Equal(t, "missing.csv", failed.Source)
	assert.Contains(t, failed.Message, "csv file not found")
}

func TestService_ImportUpload(t *testing.T) {
	uploadDir := t.TempDir()
	svc, st := newTestService(t, config.ImportConfig{MaxFileSize: 1 << 20, UploadDir: uploadDir})

	res, err := svc.ImportUpload(context.Background(), "my cards.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload file must be removed")

	runs, err := st.ListImportRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "my cards.csv", runs[0].Source)
}

func TestService_ImportUploadRejects(t *testing.T) {
	uploadDir := t.TempDir()
	svc, _ := newTestService(t, config.ImportConfig{MaxFileSize: 16, UploadDir: uploadDir})

	_, err := svc.ImportUpload(context.Background(), "big.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "FILE001", MapError(err).Code)

	_, err = svc.ImportUpload(context.Background(), "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_ImportBusy(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	require.NoError(t, svc.Limiter().Acquire(context.Background()))
	defer svc.Limiter().Release()

	_, err := svc.ImportFile(context.Background(), writeCSV(t, sampleCSV))
	assert.ErrorIs(t, err, ErrTooManyImports)
}

func TestService_CardCRUD(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{})
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, CardInput{
		SetID:  " sv1 ",
		Number: "4",
		Name:   "Charmander",
		Types:  ListField(`["Fire"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "sv1", card.SetID)
	assert.Equal(t, `["Fire"]`, card.Types)

	_, err = svc.CreateCard(ctx, CardInput{SetID: "sv1", Number: "4", Name: "Again"})
	assert.ErrorIs(t, err, store.ErrConflict, "manual create never updates")

	updated, err := svc.UpdateCard(ctx, card.ID, CardUpdate{HP: ptr("70")})
	require.NoError(t, err)
	assert.Equal(t, "70", updated.HP)
	assert.Equal(t, "Charmander", updated.Name)

	unchanged, err := svc.UpdateCard(ctx, card.ID, CardUpdate{})
	require.NoError(t, err, "an empty update is a read")
	assert.Equal(t, updated, unchanged)

	_, err = svc.UpdateCard(ctx, card.ID+100, CardUpdate{})
	assert.ErrorIs(t, err, ErrCardNotFound)

	detail, err := svc.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, detail.Card.ID)
	assert.Empty(t, detail.Prices)

	require.NoError(t, svc.DeleteCard(ctx, card.ID))
	_, err = svc.GetCard(ctx, card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteCard(ctx, card.ID), store.ErrNotFound)
}

func TestService_Validation(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{})
	ctx := context.Background()

	_, err := svc.CreateCard(ctx, CardInput{SetID: "  ", Number: "4", ImageURL: "not a url"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "got %v", err)
	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "is required", fields["set_id"])
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be a valid URL", fields["image_url"])
	assert.Equal(t, "VAL003", MapError(err).Code)

	_, err = svc.UpdateCard(ctx, 1, CardUpdate{Name: ptr(" ")})
	assert.True(t, errors.As(err, &verrs))

	_, err = svc.AddCollectionItem(ctx, CollectionInput{CardID: 1, Quantity: ptr(0)})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "quantity", verrs[0].Field)

	_, err = svc.AddPriceQuote(ctx, 1, PriceInput{Source: "manual", MinPrice: ptr(5.0), MaxPrice: ptr(1.0)})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "max_price", verrs[0].Field)
}

func TestService_CollectionAndPrices(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{})
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, CardInput{SetID: "sv1", Number: "25", Name: "Pikachu"})
	require.NoError(t, err)

	_, err = svc.AddCollectionItem(ctx, CollectionInput{CardID: card.ID + 100})
	assert.ErrorIs(t, err, ErrCardNotFound)

	item, err := svc.AddCollectionItem(ctx, CollectionInput{CardID: card.ID, Condition: " NM "})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity, "quantity defaults to 1")
	assert.Equal(t, "NM", item.Condition)
	assert.False(t, item.ForTrade)

	item, err = svc.SetTradeFlag(ctx, item.ID, true)
	require.NoError(t, err)
	assert.True(t, item.ForTrade)

	_, err = svc.SetTradeFlag(ctx, item.ID+100, true)
	assert.ErrorIs(t, err, ErrItemNotFound)

	trade, err := svc.ListCollection(ctx, true)
	require.NoError(t, err)
	require.Len(t, trade, 1)
	require.NotNil(t, trade[0].Card)
	assert.True(t, trade[0].Card.Owned())
	assert.True(t, trade[0].Card.ForTrade)

	q, err := svc.AddPriceQuote(ctx, card.ID, PriceInput{Source: "manual", Currency: "brl", AvgPrice: ptr(12.5)})
	require.NoError(t, err)
	assert.Equal(t, "BRL", q.Currency)
	assert.False(t, q.FetchedAt.IsZero())

	_, err = svc.AddPriceQuote(ctx, card.ID+100, PriceInput{Source: "manual"})
	assert.ErrorIs(t, err, ErrCardNotFound)

	prices, err := svc.ListPriceQuotes(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cards)
	assert.Equal(t, 1, stats.OwnedCards)
	assert.Equal(t, 1, stats.ForTrade)

	require.NoError(t, svc.DeleteCollectionItem(ctx, item.ID))
	assert.ErrorIs(t, svc.DeleteCollectionItem(ctx, item.ID), ErrItemNotFound)
}

func TestService_ListCardsClampsLimit(t *testing.T) {
	svc, _ := newTestService(t, config.ImportConfig{})
	ctx := context.Background()
	for _, n := range []string{"1", "2", "3"} {
		_, err := svc.CreateCard(ctx, CardInput{SetID: "sv1", Number: n, Name: "Card " + n})
		require.NoError(t, err)
	}

	cards, err := svc.ListCards(ctx, store.CardFilter{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, cards, 3)

	cards, err = svc.ListCards(ctx, store.CardFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Card 3", cards[0].Name)
}

func TestListField_UnmarshalJSON(t *testing.T) {
	var in CardInput
	require.NoError(t, json.Unmarshal([]byte(`{"types":"Fire|Water","weaknesses":["Grass"],"retreat_cost":null}`), &in))
	assert.Equal(t, ListField(`["Fire","Water"]`), in.Types)
	assert.Equal(t, ListField(`["Grass"]`), in.Weaknesses)
	assert.Empty(t, in.RetreatCost)

	assert.Error(t, json.Unmarshal([]byte(`{"types":42}`), &in))
}
