package core

// normalize.go canonicalizes raw CSV cells into the text stored on a card.
//
// List-like cells arrive in several shapes. They are parsed in one fixed
// order, first match wins:
//
//  1. a JSON array literal, or a JSON string holding one item
//  2. a '|' separated string
//  3. a ',' separated string
//  4. a single item
//
// Steps 2 to 4 run on the text inside a surrounding pair of brackets.
//
// The stored form is always a JSON array with non-ASCII text kept as is.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/collector/internal/store"
)

// List is a parsed list-like cell. Items are strings, except that objects
// inside a JSON array stay map[string]any.
type List []any

// ParseList parses a list-like cell. It reports false for a blank cell.
//
// Text that looks like JSON but does not parse as an array or string is
// unwrapped from its brackets and split like plain text, so [Fire, Water]
// and ['Fire', 'Water'] both give two items.
func ParseList(raw string) (List, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if items, ok := parseJSONArray(raw); ok {
		return items, true
	}
	if s, ok := parseJSONString(raw); ok {
		if s == "" {
			return List{}, true
		}
		return List{s}, true
	}

	inner, bracketed := unbracket(raw)
	switch {
	case inner == "":
		return List{}, true
	case strings.Contains(inner, "|"):
		return splitItems(inner, "|", bracketed), true
	case strings.Contains(inner, ","):
		return splitItems(inner, ",", bracketed), true
	case bracketed:
		return splitItems(inner, "", true), true
	default:
		return List{inner}, true
	}
}

func parseJSONString(raw string) (string, bool) {
	if !strings.HasPrefix(raw, `"`) {
		return "", false
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// unbracket strips one pair of surrounding square brackets.
func unbracket(raw string) (string, bool) {
	if len(raw) >= 2 && raw[0] == '[' && raw[len(raw)-1] == ']' {
		return strings.TrimSpace(raw[1 : len(raw)-1]), true
	}
	return raw, false
}

func parseJSONArray(raw string) (List, bool) {
	if !strings.HasPrefix(raw, "[") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}

	items := make(List, 0, len(values))
	for _, v := range values {
		switch v := v.(type) {
		case nil:
		case string:
			if s := strings.TrimSpace(v); s != "" {
				items = append(items, s)
			}
		case json.Number:
			items = append(items, v.String())
		case bool:
			items = append(items, fmt.Sprint(v))
		default:
			items = append(items, v)
		}
	}
	return items, true
}

// splitItems splits raw on sep, or keeps it whole when sep is empty. Items
// taken from inside brackets also lose one pair of matching quotes.
func splitItems(raw, sep string, unquote bool) List {
	parts := []string{raw}
	if sep != "" {
		parts = strings.Split(raw, sep)
	}
	var items List
	for _, part := range parts {
		s := strings.TrimSpace(part)
		if unquote {
			s = trimQuotes(s)
		}
		if s != "" {
			items = append(items, s)
		}
	}
	return items
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// Strings returns the items that are plain strings.
func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CanonicalList parses raw and returns its stored JSON-array form. It
// reports false for a blank cell.
func CanonicalList(raw string) (string, bool) {
	items, ok := ParseList(raw)
	if !ok {
		return "", false
	}
	if items == nil {
		items = List{}
	}
	text, err := marshalJSON(items)
	if err != nil {
		return "", false
	}
	return text, true
}

// marshalJSON encodes v without HTML escaping and without a trailing newline.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

const attackPrefix = "attacks_"

// ParseAttacks groups attacks_<index>_<attribute> columns into one object per
// index, ordered by the index token. It reports false when the row has no
// attack values.
func ParseAttacks(row Row) (string, bool) {
	groups := map[string]map[string]any{}
	for _, key := range row.Keys() {
		index, attr, ok := splitAttackKey(key)
		if !ok {
			continue
		}
		value, _ := row.Get(key)
		group, exists := groups[index]
		if !exists {
			group = map[string]any{}
			groups[index] = group
		}
		if attr == "cost" {
			list, _ := ParseList(value)
			group[attr] = list.Strings()
			continue
		}
		group[attr] = value
	}
	if len(groups) == 0 {
		return "", false
	}

	indexes := make([]string, 0, len(groups))
	for index := range groups {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)

	attacks := make([]map[string]any, 0, len(indexes))
	for _, index := range indexes {
		attacks = append(attacks, groups[index])
	}
	text, err := marshalJSON(attacks)
	if err != nil {
		return "", false
	}
	return text, true
}

// splitAttackKey splits attacks_<index>_<attribute>. The index must be all
// digits; the attribute may itself contain underscores.
func splitAttackKey(key string) (index, attr string, ok bool) {
	rest, found := strings.CutPrefix(key, attackPrefix)
	if !found {
		return "", "", false
	}
	index, attr, found = strings.Cut(rest, "_")
	if !found || index == "" || attr == "" {
		return "", "", false
	}
	for _, c := range index {
		if c < '0' || c > '9' {
			return "", "", false
		}
	}
	return index, attr, true
}

// ImageResolver finds local images for cards.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, bool)
	Guess(ctx context.Context, setID, number string) (string, bool)
}

// Header aliases accepted for each card field, in priority order.
var (
	aliasSetID       = []string{"set_id", "setId"}
	aliasNumber      = []string{"number", "card_number"}
	aliasName        = []string{"name", "nome"}
	aliasHP          = []string{"hp", "hp_str"}
	aliasTypes       = []string{"types", "type"}
	aliasRarity      = []string{"rarity"}
	aliasSetName     = []string{"set_name", "set"}
	aliasArtist      = []string{"artist"}
	aliasAbilityName = []string{"ability_name", "abilities_0_name"}
	aliasAbilityText = []string{"ability_text", "abilities_0_text"}
	aliasWeaknesses  = []string{"weaknesses"}
	aliasResistances = []string{"resistances"}
	aliasRetreat     = []string{"retreat_cost", "retreat"}
	aliasImageURL    = []string{"image_url", "images_small"}
	aliasImageHint   = []string{"Imagem", "imagem"}
)

const aliasImagePath = "image_path"

// Normalizer builds card patches from CSV rows.
type Normalizer struct {
	images ImageResolver
}

// NewNormalizer returns a normalizer. images may be nil, in which case only
// an explicit image_path is recorded.
func NewNormalizer(images ImageResolver) *Normalizer {
	return &Normalizer{images: images}
}

// Patch converts row into the fields to write onto the card (setID, number).
// Fields absent from the row stay nil so they never overwrite stored values.
func (n *Normalizer) Patch(ctx context.Context, row Row, setID, number string) store.CardPatch {
	p := store.CardPatch{
		SetID:  &setID,
		Number: &number,
	}

	scalar := func(aliases []string) *string {
		if v, ok := row.Lookup(aliases...); ok {
			return &v
		}
		return nil
	}
	list := func(aliases []string) *string {
		if v, ok := row.Lookup(aliases...); ok {
			if text, ok := CanonicalList(v); ok {
				return &text
			}
		}
		return nil
	}

	p.Name = scalar(aliasName)
	p.HP = scalar(aliasHP)
	p.Types = list(aliasTypes)
	p.Rarity = scalar(aliasRarity)
	p.SetName = scalar(aliasSetName)
	p.Artist = scalar(aliasArtist)
	p.AbilityName = scalar(aliasAbilityName)
	p.AbilityText = scalar(aliasAbilityText)
	p.Weaknesses = list(aliasWeaknesses)
	p.Resistances = list(aliasResistances)
	p.RetreatCost = list(aliasRetreat)
	p.ImageURL = scalar(aliasImageURL)
	if attacks, ok := ParseAttacks(row); ok {
		p.Attacks = &attacks
	}
	if img, ok := n.imagePath(ctx, row, setID, number); ok {
		p.ImagePath = &img
	}
	return p
}

// imagePath picks the card's local image: an explicit image_path (kept
// verbatim when it cannot be resolved), then the vernacular hint column, then
// a guess from set and number.
func (n *Normalizer) imagePath(ctx context.Context, row Row, setID, number string) (string, bool) {
	if ref, ok := row.Get(aliasImagePath); ok {
		if n.images != nil {
			if resolved, ok := n.images.Resolve(ctx, ref); ok {
				return resolved, true
			}
		}
		return ref, true
	}
	if n.images == nil {
		return "", false
	}
	if ref, ok := row.Lookup(aliasImageHint...); ok {
		if resolved, ok := n.images.Resolve(ctx, ref); ok {
			return resolved, true
		}
	}
	return n.images.Guess(ctx, setID, number)
}
