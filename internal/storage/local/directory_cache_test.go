package local_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/storage/local"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newCache(t *testing.T, now time.Time) (*local.DirectoryCache, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	cache, err := local.NewDirectoryCache(fs, "/cache", fixedClock{now: now})
	require.NoError(t, err)
	return cache, fs
}

func TestDirectoryCacheStoreLoad(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache, fs := newCache(t, now)
	expires := now.Add(24 * time.Hour)
	entry := crawler.DirectoryCacheEntry{
		BaseURI:      "https://repo.example/maven2/",
		RelativePath: "org/apache/",
		Items:        []string{"a.txt", "b/"},
		ExpiresAt:    &expires,
	}

	require.NoError(t, cache.Store(entry))

	exists, err := afero.Exists(fs, "/cache/org/apache/maven_tree_info.json")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := cache.Load("org/apache/")
	require.NoError(t, err)
	assert.Equal(t, entry.BaseURI, got.BaseURI)
	assert.Equal(t, entry.RelativePath, got.RelativePath)
	assert.Equal(t, entry.Items, got.Items)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
	assert.True(t, cache.IsValid(got))
}

func TestDirectoryCacheRootEntry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	cache, fs := newCache(t, now)
	require.NoError(t, cache.Store(crawler.DirectoryCacheEntry{RelativePath: "", Items: []string{"org/"}}))

	exists, err := afero.Exists(fs, "/cache/maven_tree_info.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDirectoryCacheMissingIsMiss(t *testing.T) {
	t.Parallel()

	cache, _ := newCache(t, time.Now())
	_, err := cache.Load("nowhere/")
	assert.ErrorIs(t, err, crawler.ErrCacheMiss)
}

func TestDirectoryCacheCorruptIsMiss(t *testing.T) {
	t.Parallel()

	cache, fs := newCache(t, time.Now())
	require.NoError(t, fs.MkdirAll("/cache/broken", 0o750))
	require.NoError(t, afero.WriteFile(fs, "/cache/broken/maven_tree_info.json", []byte(`{"items": [`), 0o600))

	_, err := cache.Load("broken/")
	assert.ErrorIs(t, err, crawler.ErrCacheMiss)
}

func TestDirectoryCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache, fs := newCache(t, now)
	require.NoError(t, fs.MkdirAll("/cache/old", 0o750))
	require.NoError(t, afero.WriteFile(fs, "/cache/old/maven_tree_info.json",
		[]byte(`{"baseUri":"https://repo.example/","relativeUri":"old/","items":["x"],"cacheExpireDate":"2026-02-01T00:00:00Z"}`),
		0o600))

	entry, err := cache.Load("old/")
	require.NoError(t, err)
	assert.False(t, cache.IsValid(entry))

	assert.False(t, cache.IsValid(crawler.DirectoryCacheEntry{Items: []string{"x"}}), "entries without expiry are never valid")
}

func TestDirectoryCacheOverwrite(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	cache, _ := newCache(t, now)
	require.NoError(t, cache.Store(crawler.DirectoryCacheEntry{RelativePath: "d/", Items: []string{"one", "two", "three"}}))
	require.NoError(t, cache.Store(crawler.DirectoryCacheEntry{RelativePath: "d/", Items: []string{"only"}}))

	got, err := cache.Load("d/")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got.Items)
}

func TestNewDirectoryCacheValidation(t *testing.T) {
	t.Parallel()

	_, err := local.NewDirectoryCache(afero.NewMemMapFs(), " ", fixedClock{})
	assert.Error(t, err)
	_, err = local.NewDirectoryCache(afero.NewMemMapFs(), "/cache", nil)
	assert.Error(t, err)
}
