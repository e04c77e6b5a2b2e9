// Package storage defines the interfaces for an object storage provider.
// This abstraction keeps the pipeline independent of a specific backend
// (S3-compatible stores, Google Cloud Storage, or the local filesystem).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Provider defines the common interface for an object storage provider.
type Provider interface {
	// Get opens the object for streaming. Missing objects yield ErrNotFound.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Put uploads data to the given bucket and key, replacing any existing object.
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// Factory builds a fresh Provider. Month workers call it so that no client is
// shared between them.
type Factory func(ctx context.Context) (Provider, error)

// ParseURI splits an object URI into bucket and key. Bare keys resolve against
// defaultBucket.
func ParseURI(uri, defaultBucket string) (string, string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", "", fmt.Errorf("empty object uri")
	}
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		if defaultBucket == "" {
			return "", "", fmt.Errorf("object uri %q has no bucket", uri)
		}
		return defaultBucket, strings.TrimPrefix(uri, "/"), nil
	}
	switch scheme {
	case "s3", "gs":
	default:
		return "", "", fmt.Errorf("unsupported object uri scheme %q", scheme)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object uri %q must be <scheme>://<bucket>/<key>", uri)
	}
	return bucket, key, nil
}
