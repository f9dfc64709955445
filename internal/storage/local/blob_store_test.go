// Package local_test tests the local filesystem stores.
package local_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesBaseDir", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		_, err := local.NewWithFS(fs, local.Config{BaseDir: "/mirror/out"})
		require.NoError(t, err)
		ok, err := afero.DirExists(fs, "/mirror/out")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/mirror", []byte("x"), 0o600))
		_, err := local.NewWithFS(fs, local.Config{BaseDir: "/mirror"})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := local.NewWithFS(fs, local.Config{BaseDir: "/mirror"})
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		data := []byte("hello world")
		n, err := store.PutObject(context.Background(), "a.txt", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), n)

		got, err := afero.ReadFile(fs, filepath.Join("/mirror", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, data, got)

		_, err = fs.Stat(filepath.Join("/mirror", "a.txt.part"))
		assert.True(t, errors.Is(err, os.ErrNotExist), "temp file should be gone")
	})

	t.Run("NestedPathTruncates", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "org/x/b.jar", bytes.NewReader([]byte("long original content")))
		require.NoError(t, err)
		_, err = store.PutObject(context.Background(), "org/x/b.jar", bytes.NewReader([]byte("short")))
		require.NoError(t, err)

		got, err := afero.ReadFile(fs, filepath.Join("/mirror", "org", "x", "b.jar"))
		require.NoError(t, err)
		assert.Equal(t, "short", string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.txt", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, crawler.ErrUnsafePath)
	})

	t.Run("FailedStreamLeavesNoFile", func(t *testing.T) {
		r := io.MultiReader(bytes.NewReader([]byte("partial")), errReader{err: errors.New("connection reset")})
		_, err := store.PutObject(context.Background(), "broken.jar", r)
		require.Error(t, err)

		ok, err := store.HasObject("broken.jar")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.PutObject(ctx, "c.txt", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHasObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := local.NewWithFS(fs, local.Config{BaseDir: "/mirror"})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/mirror/full.txt", []byte("x"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/mirror/empty.txt", nil, 0o600))
	require.NoError(t, fs.MkdirAll("/mirror/dir", 0o750))

	ok, err := store.HasObject("full.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasObject("empty.txt")
	require.NoError(t, err)
	assert.False(t, ok, "zero-size files are not trusted")

	ok, err = store.HasObject("missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.HasObject("dir")
	require.NoError(t, err)
	assert.False(t, ok)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
