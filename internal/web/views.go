package web

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/store"
)

// CardView is the JSON form of a card. List fields are decoded arrays.
type CardView struct {
	ID          int64           `json:"id"`
	SetID       string          `json:"set_id"`
	Number      string          `json:"number"`
	Name        string          `json:"name"`
	HP          string          `json:"hp,omitempty"`
	Types       json.RawMessage `json:"types"`
	Rarity      string          `json:"rarity,omitempty"`
	SetName     string          `json:"set_name,omitempty"`
	Artist      string          `json:"artist,omitempty"`
	AbilityName string          `json:"ability_name,omitempty"`
	AbilityText string          `json:"ability_text,omitempty"`
	Attacks     json.RawMessage `json:"attacks"`
	Weaknesses  json.RawMessage `json:"weaknesses"`
	Resistances json.RawMessage `json:"resistances"`
	RetreatCost json.RawMessage `json:"retreat_cost"`
	ImagePath   string          `json:"image_path,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Owned       bool            `json:"owned"`
	ForTrade    bool            `json:"for_trade"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func cardView(c store.Card) CardView {
	return CardView{
		ID:          c.ID,
		SetID:       c.SetID,
		Number:      c.Number,
		Name:        c.Name,
		HP:          c.HP,
		Types:       listJSON(c.Types),
		Rarity:      c.Rarity,
		SetName:     c.SetName,
		Artist:      c.Artist,
		AbilityName: c.AbilityName,
		AbilityText: c.AbilityText,
		Attacks:     listJSON(c.Attacks),
		Weaknesses:  listJSON(c.Weaknesses),
		Resistances: listJSON(c.Resistances),
		RetreatCost: listJSON(c.RetreatCost),
		ImagePath:   c.ImagePath,
		ImageURL:    c.ImageURL,
		Image:       imageHref(c),
		Quantity:    c.Quantity,
		Owned:       c.Owned(),
		ForTrade:    c.ForTrade,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func cardViews(cards []store.Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = cardView(c)
	}
	return out
}

// listJSON returns stored list text as raw JSON. Legacy values that are not
// JSON are canonicalized first; blank text is an empty array.
func listJSON(text string) json.RawMessage {
	if strings.TrimSpace(text) == "" {
		return json.RawMessage("[]")
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}
	if canon, ok := core.CanonicalList(text); ok {
		return json.RawMessage(canon)
	}
	return json.RawMessage("[]")
}

// imageHref links the local image when there is one, else the remote URL.
func imageHref(c store.Card) string {
	if c.ImagePath == "" {
		return c.ImageURL
	}
	segs := strings.Split(c.ImagePath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/images/" + strings.Join(segs, "/")
}

// CardDetailView is a card with its price quotes.
type CardDetailView struct {
	CardView
	Prices []PriceView `json:"prices"`
}

// PriceView is the JSON form of a price quote.
type PriceView struct {
	ID        int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	Source    string    `json:"source"`
	Currency  string    `json:"currency,omitempty"`
	AvgPrice  *float64  `json:"avg_price"`
	MinPrice  *float64  `json:"min_price"`
	MaxPrice  *float64  `json:"max_price"`
	URL       string    `json:"url,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

func priceViews(quotes []store.PriceQuote) []PriceView {
	out := make([]PriceView, len(quotes))
	for i, q := range quotes {
		out[i] = PriceView{
			ID:        q.ID,
			CardID:    q.CardID,
			Source:    q.Source,
			Currency:  q.Currency,
			AvgPrice:  q.AvgPrice,
			MinPrice:  q.MinPrice,
			MaxPrice:  q.MaxPrice,
			URL:       q.URL,
			FetchedAt: q.FetchedAt,
		}
	}
	return out
}

// ItemView is the JSON form of a collection item.
type ItemView struct {
	ID        int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	Quantity  int       `json:"quantity"`
	Condition string    `json:"condition,omitempty"`
	ForTrade  bool      `json:"for_trade"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Card      *CardView `json:"card,omitempty"`
}

func itemView(item store.CollectionItem) ItemView {
	v := ItemView{
		ID:        item.ID,
		CardID:    item.CardID,
		Quantity:  item.Quantity,
		Condition: item.Condition,
		ForTrade:  item.ForTrade,
		Notes:     item.Notes,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Card != nil {
		cv := cardView(*item.Card)
		v.Card = &cv
	}
	return v
}

// RunView is the JSON form of an import run.
type RunView struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	ErrorCount int       `json:"error_count"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

func runViews(runs []store.ImportRun) []RunView {
	out := make([]RunView, len(runs))
	for i, run := range runs {
		out[i] = RunView{
			ID:         run.ID,
			Source:     run.Source,
			Status:     run.Status,
			Created:    run.Created,
			Updated:    run.Updated,
			Skipped:    run.Skipped,
			ErrorCount: run.ErrorCount,
			Message:    run.Message,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			DurationMS: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		}
	}
	return out
}
