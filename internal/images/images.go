package images

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/collector/internal/config"
)

// Backend is a Source that can also serve its images over HTTP.
type Backend interface {
	Source
	Handler() http.Handler
}

// New builds the configured backend and a caching resolver over it.
func New(cfg config.ImagesConfig, logger *slog.Logger) (*Resolver, Backend, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(cfg.Backend) {
	case "s3":
		backend, err = NewBucket(cfg.S3)
	case "local", "":
		backend, err = NewDir(cfg.Dir)
	default:
		err = fmt.Errorf("images: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	return NewResolver(backend, cfg.CacheSize, cfg.CacheTTL, logger), backend, nil
}
