package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/collector/internal/logging"
)

func touch(t *testing.T, root, name string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, nil, 0o644))
}

func newDirResolver(t *testing.T, root string) *Resolver {
	t.Helper()
	dir, err := NewDir(root)
	require.NoError(t, err)
	return NewResolver(dir, 16, time.Minute, logging.Discard())
}

func TestCandidateNames(t *testing.T) {
	tests := []struct {
		set, number string
		want        []string
	}{
		{"sv1", "4", []string{"sv1_4", "sv14", "4", "sv1_004", "sv1004", "004", "sv1_0004", "sv10004", "0004"}},
		{"SV-1", "#004 ", []string{"sv_1_004", "sv_1004", "004", "sv_1_0004", "sv_10004", "0004"}},
		{"base", "TG 05", []string{"base_tg05", "basetg05", "tg05", "base_05", "base05", "05", "base_005", "base005", "005", "base_0005", "base0005", "0005"}},
		{"--", "SWSH001", []string{"swsh001", "001", "0001"}},
	}
	for _, tt := range tests {
		got := CandidateNames(tt.set, tt.number)
		assert.Equal(t, tt.want, got, "CandidateNames(%q, %q)", tt.set, tt.number)
	}
}

func TestResolve_ExistingReference(t *testing.T) {
	root := filepath.Join(t.TempDir(), "assets")
	touch(t, root, "pikachu.png")
	r := newDirResolver(t, root)

	got, ok := r.Resolve(context.Background(), "pikachu.png")
	assert.True(t, ok)
	assert.Equal(t, "pikachu.png", got)
}

func TestResolve_TriesExtensions(t *testing.T) {
	root := filepath.Join(t.TempDir(), "assets")
	touch(t, root, "charmander.jpg")
	r := newDirResolver(t, root)

	got, ok := r.Resolve(context.Background(), "charmander")
	assert.True(t, ok)
	assert.Equal(t, "charmander.jpg", got)
}

func TestResolve_AbsolutePathInsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "assets")
	touch(t, root, "sets/sv1/4.webp")
	r := newDirResolver(t, root)

	got, ok := r.Resolve(context.Background(), filepath.Join(root, "sets", "sv1", "4.webp"))
	assert.True(t, ok)
	assert.Equal(t, "sets/sv1/4.webp", got)
}

func TestResolve_RejectsEscapes(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "assets")
	touch(t, root, "ok.png")
	touch(t, base, "secret.png")
	r := newDirResolver(t, root)

	for _, ref := range []string{"../secret.png", filepath.Join(base, "secret.png"), "  "} {
		_, ok := r.Resolve(context.Background(), ref)
		assert.False(t, ok, "Resolve(%q)", ref)
	}
}

func TestGuess(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sv1_004.jpeg")
	touch(t, root, "7.png")
	r := newDirResolver(t, root)
	ctx := context.Background()

	got, ok := r.Guess(ctx, "SV1", "4")
	assert.True(t, ok)
	assert.Equal(t, "sv1_004.jpeg", got)

	got, ok = r.Guess(ctx, "other", "#7")
	assert.True(t, ok)
	assert.Equal(t, "7.png", got)

	_, ok = r.Guess(ctx, "sv1", "99")
	assert.False(t, ok)

	_, ok = r.Guess(ctx, "", "4")
	assert.False(t, ok)
}

func TestGuess_MissingRoot(t *testing.T) {
	r := newDirResolver(t, filepath.Join(t.TempDir(), "does-not-exist"))
	_, ok := r.Guess(context.Background(), "sv1", "4")
	assert.False(t, ok)
}

type countingSource struct {
	files map[string]bool
	calls int
}

func (c *countingSource) Exists(_ context.Context, name string) (bool, error) {
	c.calls++
	return c.files[name], nil
}

func (c *countingSource) Rel(ref string) (string, bool) { return ref, true }

func TestResolver_CachesHitsAndMisses(t *testing.T) {
	src := &countingSource{files: map[string]bool{"sv1_4.png": true}}
	r := NewResolver(src, 8, time.Minute, logging.Discard())
	ctx := context.Background()

	got, ok := r.Guess(ctx, "sv1", "4")
	require.True(t, ok)
	assert.Equal(t, "sv1_4.png", got)
	calls := src.calls

	got, ok = r.Guess(ctx, "sv1", "4")
	require.True(t, ok)
	assert.Equal(t, "sv1_4.png", got)
	assert.Equal(t, calls, src.calls, "second guess should be served from cache")

	_, ok = r.Resolve(ctx, "missing")
	assert.False(t, ok)
	calls = src.calls
	_, ok = r.Resolve(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, calls, src.calls, "misses are cached too")
}

func TestBucketRel(t *testing.T) {
	b := &Bucket{}
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"pikachu.png", "pikachu.png", true},
		{"/sets/sv1/4.png", "sets/sv1/4.png", true},
		{`sets\sv1\4.png`, "sets/sv1/4.png", true},
		{"../etc/passwd", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		got, ok := b.Rel(tt.ref)
		assert.Equal(t, tt.ok, ok, "Rel(%q)", tt.ref)
		assert.Equal(t, tt.want, got, "Rel(%q)", tt.ref)
	}
}
