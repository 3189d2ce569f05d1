// Package store defines the catalog's persistence contract and domain records.
//
// Two implementations exist: store/postgres (pgx) and store/sqlite (modernc).
// Both speak the same interfaces so the import pipeline and the service layer
// never see SQL dialect differences.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by every implementation. Integrity violations are
// wrapped so the driver's message survives: errors.Is(err, ErrConflict).
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("unique constraint violation")
	ErrConstraint = errors.New("integrity constraint violation")
)

// Card is a catalog entry identified by the natural key (SetID, Number).
//
// Types, Attacks, Weaknesses, Resistances and RetreatCost hold canonical
// JSON-array text. An empty string means the column is NULL.
type Card struct {
	ID          int64
	SetID       string
	Number      string
	Name        string
	HP          string
	Types       string
	Rarity      string
	SetName     string
	Artist      string
	AbilityName string
	AbilityText string
	Attacks     string
	Weaknesses  string
	Resistances string
	RetreatCost string
	ImagePath   string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Derived from collection items on read.
	Quantity int
	ForTrade bool
}

// Owned reports whether the collection holds at least one copy of the card.
func (c Card) Owned() bool {
	return c.Quantity > 0
}

// CardPatch carries the fields to write onto a card. A nil field is absent
// and leaves the stored value untouched.
type CardPatch struct {
	SetID       *string
	Number      *string
	Name        *string
	HP          *string
	Types       *string
	Rarity      *string
	SetName     *string
	Artist      *string
	AbilityName *string
	AbilityText *string
	Attacks     *string
	Weaknesses  *string
	Resistances *string
	RetreatCost *string
	ImagePath   *string
	ImageURL    *string
}

// Apply writes every present field of p onto c.
func (p CardPatch) Apply(c *Card) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.SetID, p.SetID)
	set(&c.Number, p.Number)
	set(&c.Name, p.Name)
	set(&c.HP, p.HP)
	set(&c.Types, p.Types)
	set(&c.Rarity, p.Rarity)
	set(&c.SetName, p.SetName)
	set(&c.Artist, p.Artist)
	set(&c.AbilityName, p.AbilityName)
	set(&c.AbilityText, p.AbilityText)
	set(&c.Attacks, p.Attacks)
	set(&c.Weaknesses, p.Weaknesses)
	set(&c.Resistances, p.Resistances)
	set(&c.RetreatCost, p.RetreatCost)
	set(&c.ImagePath, p.ImagePath)
	set(&c.ImageURL, p.ImageURL)
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p == CardPatch{}
}

// CollectionItem records owned copies of one card.
type CollectionItem struct {
	ID        int64
	CardID    int64
	Quantity  int
	Condition string
	ForTrade  bool
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Card is populated by ListCollection.
	Card *Card
}

// PriceQuote is a price observation for a card from one source.
type PriceQuote struct {
	ID        int64
	CardID    int64
	Source    string
	Currency  string
	AvgPrice  *float64
	MinPrice  *float64
	MaxPrice  *float64
	URL       string
	FetchedAt time.Time
}

// ImportRun is the history record of one CSV import.
type ImportRun struct {
	ID         string
	Source     string
	Status     string
	Created    int
	Updated    int
	Skipped    int
	ErrorCount int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Import run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// CardFilter narrows ListCards. Zero values do not filter.
type CardFilter struct {
	Query  string // case-insensitive substring of name
	SetID  string
	Rarity string
	Type   string // substring of the types JSON text
	Number string
	Limit  int
	Offset int
}

// Stats are catalog-wide counters for the dashboard.
type Stats struct {
	Cards         int `json:"cards"`
	Sets          int `json:"sets"`
	OwnedCards    int `json:"owned_cards"`
	TotalQuantity int `json:"total_quantity"`
	ForTrade      int `json:"for_trade"`
	Imports       int `json:"imports"`
}

// Store is the catalog persistence layer.
type Store interface {
	// Begin opens the transaction an import runs in.
	Begin(ctx context.Context) (Tx, error)

	ListCards(ctx context.Context, f CardFilter) ([]Card, error)
	GetCard(ctx context.Context, id int64) (Card, error)
	// CreateCard inserts a new card. A duplicate natural key returns ErrConflict.
	CreateCard(ctx context.Context, c Card) (Card, error)
	UpdateCard(ctx context.Context, id int64, p CardPatch) (Card, error)
	// DeleteCard removes the card together with its collection items and quotes.
	DeleteCard(ctx context.Context, id int64) error

	AddCollectionItem(ctx context.Context, item CollectionItem) (CollectionItem, error)
	ListCollection(ctx context.Context, onlyTrade bool) ([]CollectionItem, error)
	SetTradeFlag(ctx context.Context, id int64, forTrade bool) (CollectionItem, error)
	DeleteCollectionItem(ctx context.Context, id int64) error

	AddPriceQuote(ctx context.Context, q PriceQuote) (PriceQuote, error)
	ListPriceQuotes(ctx context.Context, cardID int64) ([]PriceQuote, error)

	RecordImportRun(ctx context.Context, run ImportRun) error
	ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error)

	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the transactional surface used by the import pipeline.
//
// Savepoints scope a single row: on an integrity violation the row is rolled
// back to its savepoint and the rest of the transaction survives.
type Tx interface {
	// FindCardByKey returns the card with the exact natural key, or ErrNotFound.
	FindCardByKey(ctx context.Context, setID, number string) (Card, error)
	// InsertCard stores a new card and sets its ID and timestamps.
	InsertCard(ctx context.Context, c *Card) error
	// SaveCard overwrites every stored field of an existing card.
	SaveCard(ctx context.Context, c *Card) error

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	Commit(ctx context.Context) error
	// Rollback aborts the transaction. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// IsIntegrityViolation reports whether err is a uniqueness or other integrity
// constraint failure.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrConstraint)
}

// CheckSavepoint rejects savepoint names that are not plain identifiers, since
// they are spliced into SQL text.
func CheckSavepoint(name string) error {
	if name == "" {
		return fmt.Errorf("savepoint name is empty")
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid savepoint name %q", name)
		}
	}
	return nil
}

// CardColumns lists the writable card columns in the order used by both SQL
// implementations. id and timestamps are handled separately. The first
// RequiredCardColumns entries are NOT NULL.
var CardColumns = []string{
	"set_id", "number", "name", "hp", "types", "rarity", "set_name", "artist",
	"ability_name", "ability_text", "attacks", "weaknesses", "resistances",
	"retreat_cost", "image_path", "image_url",
}

// RequiredCardColumns is the count of leading NOT NULL entries in CardColumns.
const RequiredCardColumns = 3

// Fields returns pointers to c's writable fields in CardColumns order.
func (c *Card) Fields() []*string {
	return []*string{
		&c.SetID, &c.Number, &c.Name, &c.HP, &c.Types, &c.Rarity, &c.SetName, &c.Artist,
		&c.AbilityName, &c.AbilityText, &c.Attacks, &c.Weaknesses, &c.Resistances,
		&c.RetreatCost, &c.ImagePath, &c.ImageURL,
	}
}
