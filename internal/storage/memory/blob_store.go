// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

// BlobStore stores objects in-memory keyed by bucket and key.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Get returns a reader over a copy of the stored object.
func (s *BlobStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	payload, ok := s.Object(bucket, key)
	if !ok {
		return nil, fmt.Errorf("memory://%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// Put stores a copy of data.
func (s *BlobStore) Put(_ context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path(bucket, key)] = append([]byte(nil), data...)
	return nil
}

// Object returns a copy of the stored bytes.
func (s *BlobStore) Object(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.data[path(bucket, key)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}

// Keys lists every stored bucket/key path in sorted order.
func (s *BlobStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func path(bucket, key string) string {
	return bucket + "/" + key
}
