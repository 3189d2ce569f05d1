package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/collector/internal/store"
)

// ListField is a list-valued card field in an API payload. It accepts a JSON
// array or a string in any form ParseList understands, and holds the
// canonical stored text.
type ListField string

func (f *ListField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else if len(b) == 0 || b[0] != '[' {
		return fmt.Errorf("list field must be an array or a string")
	}
	text, _ := CanonicalList(raw)
	*f = ListField(text)
	return nil
}

// CardInput is the payload for creating a card by hand.
type CardInput struct {
	SetID       string    `json:"set_id" validate:"required,max=64"`
	Number      string    `json:"number" validate:"required,max=32"`
	Name        string    `json:"name" validate:"required,max=200"`
	HP          string    `json:"hp" validate:"max=16"`
	Types       ListField `json:"types"`
	Rarity      string    `json:"rarity" validate:"max=64"`
	SetName     string    `json:"set_name" validate:"max=200"`
	Artist      string    `json:"artist" validate:"max=200"`
	AbilityName string    `json:"ability_name" validate:"max=200"`
	AbilityText string    `json:"ability_text" validate:"max=2000"`
	Attacks     ListField `json:"attacks"`
	Weaknesses  ListField `json:"weaknesses"`
	Resistances ListField `json:"resistances"`
	RetreatCost ListField `json:"retreat_cost"`
	ImagePath   string    `json:"image_path" validate:"max=500"`
	ImageURL    string    `json:"image_url" validate:"omitempty,url"`
}

func (in *CardInput) trim() {
	for _, s := range []*string{
		&in.SetID, &in.Number, &in.Name, &in.HP, &in.Rarity, &in.SetName,
		&in.Artist, &in.AbilityName, &in.AbilityText, &in.ImagePath, &in.ImageURL,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// Card converts the payload into a new card.
func (in CardInput) Card() store.Card {
	return store.Card{
		SetID:       in.SetID,
		Number:      in.Number,
		Name:        in.Name,
		HP:          in.HP,
		Types:       string(in.Types),
		Rarity:      in.Rarity,
		SetName:     in.SetName,
		Artist:      in.Artist,
		AbilityName: in.AbilityName,
		AbilityText: in.AbilityText,
		Attacks:     string(in.Attacks),
		Weaknesses:  string(in.Weaknesses),
		Resistances: string(in.Resistances),
		RetreatCost: string(in.RetreatCost),
		ImagePath:   in.ImagePath,
		ImageURL:    in.ImageURL,
	}
}

// CardUpdate is the payload for a partial card update. Absent fields are
// left untouched; the natural key fields may not be blanked.
type CardUpdate struct {
	SetID       *string    `json:"set_id" validate:"omitnil,min=1,max=64"`
	Number      *string    `json:"number" validate:"omitnil,min=1,max=32"`
	Name        *string    `json:"name" validate:"omitnil,min=1,max=200"`
	HP          *string    `json:"hp" validate:"omitnil,max=16"`
	Types       *ListField `json:"types"`
	Rarity      *string    `json:"rarity" validate:"omitnil,max=64"`
	SetName     *string    `json:"set_name" validate:"omitnil,max=200"`
	Artist      *string    `json:"artist" validate:"omitnil,max=200"`
	AbilityName *string    `json:"ability_name" validate:"omitnil,max=200"`
	AbilityText *string    `json:"ability_text" validate:"omitnil,max=2000"`
	Attacks     *ListField `json:"attacks"`
	Weaknesses  *ListField `json:"weaknesses"`
	Resistances *ListField `json:"resistances"`
	RetreatCost *ListField `json:"retreat_cost"`
	ImagePath   *string    `json:"image_path" validate:"omitnil,max=500"`
	ImageURL    *string    `json:"image_url" validate:"omitnil,omitempty,url"`
}

func (u *CardUpdate) trim() {
	for _, s := range []*string{
		u.SetID, u.Number, u.Name, u.HP, u.Rarity, u.SetName,
		u.Artist, u.AbilityName, u.AbilityText, u.ImagePath, u.ImageURL,
	} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

// Patch converts the payload into a store patch.
func (u CardUpdate) Patch() store.CardPatch {
	list := func(f *ListField) *string {
		if f == nil {
			return nil
		}
		s := string(*f)
		return &s
	}
	return store.CardPatch{
		SetID:       u.SetID,
		Number:      u.Number,
		Name:        u.Name,
		HP:          u.HP,
		Types:       list(u.Types),
		Rarity:      u.Rarity,
		SetName:     u.SetName,
		Artist:      u.Artist,
		AbilityName: u.AbilityName,
		AbilityText: u.AbilityText,
		Attacks:     list(u.Attacks),
		Weaknesses:  list(u.Weaknesses),
		Resistances: list(u.Resistances),
		RetreatCost: list(u.RetreatCost),
		ImagePath:   u.ImagePath,
		ImageURL:    u.ImageURL,
	}
}

// CollectionInput is the payload for adding copies of a card to the
// collection. Quantity defaults to 1.
type CollectionInput struct {
	CardID    int64  `json:"card_id" validate:"required,gt=0"`
	Quantity  *int   `json:"quantity" validate:"omitnil,gte=1"`
	Condition string `json:"condition" validate:"max=32"`
	ForTrade  bool   `json:"for_trade"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// Item converts the payload into a collection item.
func (in CollectionInput) Item() store.CollectionItem {
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	return store.CollectionItem{
		CardID:    in.CardID,
		Quantity:  qty,
		Condition: strings.TrimSpace(in.Condition),
		ForTrade:  in.ForTrade,
		Notes:     strings.TrimSpace(in.Notes),
	}
}

// PriceInput is the payload for recording a manual price quote.
type PriceInput struct {
	Source    string     `json:"source" validate:"required,max=64"`
	Currency  string     `json:"currency" validate:"omitempty,len=3"`
	AvgPrice  *float64   `json:"avg_price" validate:"omitnil,gte=0"`
	MinPrice  *float64   `json:"min_price" validate:"omitnil,gte=0"`
	MaxPrice  *float64   `json:"max_price" validate:"omitnil,gte=0"`
	URL       string     `json:"url" validate:"omitempty,url"`
	FetchedAt *time.Time `json:"fetched_at"`
}

// validateRange reports a min price above the max price.
func (in PriceInput) validateRange() error {
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ValidationErrors{{Field: "max_price", Message: "must not be less than min_price"}}
	}
	return nil
}

// Quote converts the payload into a price quote for cardID.
func (in PriceInput) Quote(cardID int64, now time.Time) store.PriceQuote {
	fetched := now
	if in.FetchedAt != nil {
		fetched = *in.FetchedAt
	}
	return store.PriceQuote{
		CardID:    cardID,
		Source:    strings.TrimSpace(in.Source),
		Currency:  strings.ToUpper(strings.TrimSpace(in.Currency)),
		AvgPrice:  in.AvgPrice,
		MinPrice:  in.MinPrice,
		MaxPrice:  in.MaxPrice,
		URL:       strings.TrimSpace(in.URL),
		FetchedAt: fetched,
	}
}
