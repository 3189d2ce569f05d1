// Package images resolves card image assets relative to a configured root.
//
// Lookups are best-effort: a missing root, a missing file or a backend error
// all resolve to "no image" and never fail an import.
package images

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Extensions are tried in order when a reference or guess has none.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Source answers whether a root-relative, slash-separated name exists.
type Source interface {
	Exists(ctx context.Context, name string) (bool, error)
	// Rel converts a reference into a root-relative name, or reports false if
	// it points outside the root.
	Rel(ref string) (string, bool)
}

// Resolver finds image paths for cards and caches the answers.
type Resolver struct {
	source Source
	cache  *expirable.LRU[string, string]
	logger *slog.Logger
}

// NewResolver builds a resolver over source. cacheSize <= 0 disables caching.
func NewResolver(source Source, cacheSize int, ttl time.Duration, logger *slog.Logger) *Resolver {
	r := &Resolver{source: source, logger: logger}
	if cacheSize > 0 {
		r.cache = expirable.NewLRU[string, string](cacheSize, nil, ttl)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve maps an explicit image reference to a root-relative path. A
// reference without an extension is tried with each of Extensions.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	return r.cached(ctx, "ref:"+ref, func() (string, bool) {
		name, ok := r.source.Rel(ref)
		if !ok {
			return "", false
		}
		if r.exists(ctx, name) {
			return name, true
		}
		if path.Ext(name) == "" {
			for _, ext := range Extensions {
				if r.exists(ctx, name+ext) {
					return name + ext, true
				}
			}
		}
		return "", false
	})
}

// Guess looks for an image named after the card's set and number.
func (r *Resolver) Guess(ctx context.Context, setID, number string) (string, bool) {
	if strings.TrimSpace(setID) == "" || strings.TrimSpace(number) == "" {
		return "", false
	}
	return r.cached(ctx, "guess:"+setID+"\x00"+number, func() (string, bool) {
		for _, name := range CandidateNames(setID, number) {
			for _, ext := range Extensions {
				if r.exists(ctx, name+ext) {
					return name + ext, true
				}
			}
		}
		return "", false
	})
}

func (r *Resolver) exists(ctx context.Context, name string) bool {
	ok, err := r.source.Exists(ctx, name)
	if err != nil {
		r.logger.Debug("image lookup failed", "name", name, "error", err)
		return false
	}
	return ok
}

// cached memoizes lookups. Misses are stored as "" so repeated rows for the
// same card don't re-probe the backend.
func (r *Resolver) cached(ctx context.Context, key string, lookup func() (string, bool)) (string, bool) {
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v, v != ""
		}
	}
	v, ok := lookup()
	if ctx.Err() != nil {
		return v, ok
	}
	if r.cache != nil {
		r.cache.Add(key, v)
	}
	return v, ok
}

// CandidateNames returns file stems to try for a card, in priority order.
//
// The set id is lowercased with non-alphanumerics mapped to "_" and trimmed of
// "_"; the number is lowercased with "#" and spaces removed. Each base (number,
// its digits, digits padded to 3 and 4, its alphanumerics) yields
// "set_base", "setbase" and "base".
func CandidateNames(setID, number string) []string {
	set := sanitizeSet(setID)
	num := strings.ToLower(strings.TrimSpace(number))
	num = strings.ReplaceAll(num, "#", "")
	num = strings.ReplaceAll(num, " ", "")

	var digits, alnum strings.Builder
	for _, ch := range num {
		if unicode.IsDigit(ch) {
			digits.WriteRune(ch)
		}
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			alnum.WriteRune(ch)
		}
	}

	bases := []string{num}
	if d := digits.String(); d != "" {
		bases = append(bases, d, zeroPad(d, 3), zeroPad(d, 4))
	}
	if a := alnum.String(); a != "" {
		bases = append(bases, a)
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, base := range bases {
		if base == "" {
			continue
		}
		if set != "" {
			add(set + "_" + base)
			add(set + base)
		}
		add(base)
	}
	return names
}

func sanitizeSet(setID string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(setID) {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
