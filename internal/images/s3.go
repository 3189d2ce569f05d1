package images

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/collector/internal/config"
)

// Bucket is an image Source backed by an S3-compatible bucket.
type Bucket struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

// NewBucket connects to the object store described by cfg.
func NewBucket(cfg config.S3Config) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("images: s3 client: %w", err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Bucket{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		expiry: expiry,
	}, nil
}

func (b *Bucket) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

// Exists reports whether the object for name exists.
func (b *Bucket) Exists(ctx context.Context, name string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, b.key(name), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// Rel accepts slash-separated object names; a leading slash is ignored.
func (b *Bucket) Rel(ref string) (string, bool) {
	ref = strings.ReplaceAll(ref, "\\", "/")
	for _, seg := range strings.Split(ref, "/") {
		if seg == ".." {
			return "", false
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}

// Handler redirects /<name> to a presigned GET URL for the object.
func (b *Bucket) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := b.Rel(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		u, err := b.client.PresignedGetObject(r.Context(), b.bucket, b.key(name), b.expiry, nil)
		if err != nil {
			http.Error(w, "image unavailable", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, u.String(), http.StatusFound)
	})
}
