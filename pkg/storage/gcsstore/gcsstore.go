// Package gcsstore keeps uploads in a Google Cloud Storage bucket.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/storage"
)

type bucket interface {
	NewWriter(ctx context.Context, key, contentType string) io.WriteCloser
	Delete(ctx context.Context, key string) error
	SignedURL(key string, expires time.Time) (string, error)
	Attrs(ctx context.Context) error
}

type Store struct {
	bucket bucket
	name   string
	urlTTL time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

// New opens a client with the configured GCP credentials.
func New(ctx context.Context, gcp config.GCPConfig, cfg config.GCSConfig, urlTTL time.Duration, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	store := newStore(handle{client.Bucket(cfg.Bucket)}, cfg.Bucket, urlTTL, logg)
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("gcs storage ready bucket=%s", cfg.Bucket))
	}
	return store, nil
}

func newStore(b bucket, name string, urlTTL time.Duration, logg *logger.Logger) *Store {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Store{bucket: b, name: name, urlTTL: urlTTL, logg: logg, now: time.Now}
}

func (s *Store) Put(ctx context.Context, obj storage.Object) error {
	key, err := storage.CleanKey(obj.Key)
	if err != nil {
		return err
	}
	if obj.Body == nil {
		return errors.New("object body is required")
	}
	w := s.bucket.NewWriter(ctx, key, obj.ContentType)
	if _, err := io.Copy(w, obj.Body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete treats a missing object as already removed.
func (s *Store) Delete(ctx context.Context, key string) error {
	key, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, key); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns a V4 signed GET valid for the configured TTL.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	url, err := s.bucket.SignedURL(key, s.now().Add(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return url, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.bucket.Attrs(ctx)
}

type handle struct {
	b *gcs.BucketHandle
}

func (h handle) NewWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	w := h.b.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (h handle) Delete(ctx context.Context, key string) error {
	return h.b.Object(key).Delete(ctx)
}

func (h handle) SignedURL(key string, expires time.Time) (string, error) {
	return h.b.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expires,
	})
}

func (h handle) Attrs(ctx context.Context) error {
	_, err := h.b.Attrs(ctx)
	return err
}
