// Package storage defines the object store used for customer uploads.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the namespace.
var ErrInvalidKey = errors.New("invalid object key")

// Object describes one file to persist.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Backend persists uploaded files. Keys are slash separated and relative.
type Backend interface {
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// CleanKey normalizes key and rejects traversal outside the bucket root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
