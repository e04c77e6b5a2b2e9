package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	appstorage "github.com/JakeFAU/ccnews-ingest/internal/storage"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/gcs"
)

// newTestBlobStore creates a BlobStore pointed at a test server.
func newTestBlobStore(t *testing.T, handler http.Handler) *gcs.BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	store, err := gcs.New(client)
	require.NoError(t, err)
	return store
}

func TestNewRequiresClient(t *testing.T) {
	_, err := gcs.New(nil)
	assert.Error(t, err)
}

func TestBlobStore_Put(t *testing.T) {
	key := "ccnews_articles/year=2024/month=01/day=02/session=intraday/articles.parquet"
	data := []byte("PAR1-test-data")

	// Simulates the GCS JSON API for multipart uploads.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/run-bucket/o")
		assert.Equal(t, key, r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), string(data))

		fmt.Fprintln(w, `{ "name": "`+key+`", "bucket": "run-bucket" }`)
	})

	store := newTestBlobStore(t, handler)
	require.NoError(t, store.Put(context.Background(), "run-bucket", key, data))
}

func TestBlobStore_PutError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store := newTestBlobStore(t, handler)
	err := store.Put(context.Background(), "run-bucket", "object", []byte("data"))
	assert.Error(t, err)
}

func TestBlobStore_PutEmptyKey(t *testing.T) {
	store := newTestBlobStore(t, http.NotFoundHandler())
	assert.Error(t, store.Put(context.Background(), "run-bucket", " ", []byte("data")))
}

// objectHandler serves one object over both the XML and JSON read paths and
// answers 404 for everything else.
func objectHandler(t *testing.T, bucket, key, content string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if !strings.Contains(r.URL.Path, bucket) || !strings.HasSuffix(r.URL.Path, key) {
			http.Error(w, "No such object", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, content)
	})
}

func TestBlobStore_Get(t *testing.T) {
	key := "2024/01/02/intraday/samples.txt"
	manifest := "s3://commoncrawl/crawl-data/CC-NEWS/2024/01/a.warc.gz\n"
	store := newTestBlobStore(t, objectHandler(t, "run-bucket", key, manifest))

	rc, err := store.Get(context.Background(), "run-bucket", key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, manifest, string(body))
}

func TestBlobStore_GetMissingIsNotFound(t *testing.T) {
	store := newTestBlobStore(t, objectHandler(t, "run-bucket", "present.txt", "x"))

	_, err := store.Get(context.Background(), "run-bucket", "2024/01/02/overnight/samples.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, appstorage.ErrNotFound)
	assert.Contains(t, err.Error(), "gs://run-bucket/2024/01/02/overnight/samples.txt")
}

func TestBlobStore_GetServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestBlobStore(t, handler)

	_, err := store.Get(context.Background(), "run-bucket", "object")
	require.Error(t, err)
	assert.NotErrorIs(t, err, appstorage.ErrNotFound)
}
