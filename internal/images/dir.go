package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// Dir is an image Source backed by a local directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root, made absolute against the working
// directory. The directory does not need to exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("images: resolve root %q: %w", root, err)
	}
	return &Dir{root: abs}, nil
}

// Exists reports whether name is a regular file under the root.
func (d *Dir) Exists(_ context.Context, name string) (bool, error) {
	info, err := os.Stat(filepath.Join(d.root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Rel accepts relative references that stay inside the root and absolute
// paths located under it.
func (d *Dir) Rel(ref string) (string, bool) {
	p := filepath.FromSlash(ref)
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(d.root, p)
		if err != nil || !filepath.IsLocal(rel) {
			return "", false
		}
		return filepath.ToSlash(rel), true
	}
	clean := filepath.Clean(p)
	if !filepath.IsLocal(clean) {
		return "", false
	}
	return filepath.ToSlash(clean), true
}

// Handler serves files from the root. Mount it with http.StripPrefix.
func (d *Dir) Handler() http.Handler {
	return http.FileServer(http.Dir(d.root))
}
