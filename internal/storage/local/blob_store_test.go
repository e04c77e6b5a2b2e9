// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ccnews-ingest/internal/storage"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "root")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "testfile")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutGet(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		key := "2024/01/02/intraday/samples.txt"
		require.NoError(t, store.Put(ctx, "run", key, []byte("s3://commoncrawl/a.warc.gz\n")))

		// #nosec G304 -- test reads from the controlled temp directory.
		onDisk, err := os.ReadFile(filepath.Join(tempDir, "run", key))
		require.NoError(t, err)
		assert.Equal(t, "s3://commoncrawl/a.warc.gz\n", string(onDisk))

		rc, err := store.Get(ctx, "run", key)
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, onDisk, got)
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := store.Get(ctx, "run", "nope.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("EmptyKey", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, "run", "", []byte("data")))
	})

	t.Run("PathTraversal", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, "run", "../../escape.txt", []byte("data")))
		_, err := store.Get(ctx, "..", "../etc/passwd")
		assert.Error(t, err)
	})
}
