package local

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
)

// DirectoryCache stores one JSON listing per directory below a cache root,
// mirroring the repository layout.
type DirectoryCache struct {
	fs    afero.Fs
	root  string
	clock crawler.Clock
}

// NewDirectoryCache returns a cache rooted at root.
func NewDirectoryCache(fs afero.Fs, root string, clock crawler.Clock) (*DirectoryCache, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if err := fs.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", root, err)
	}
	return &DirectoryCache{fs: fs, root: filepath.Clean(root), clock: clock}, nil
}

// Load reads the listing for relativePath. Missing, unreadable and corrupt
// files all yield crawler.ErrCacheMiss.
func (c *DirectoryCache) Load(relativePath string) (crawler.DirectoryCacheEntry, error) {
	path, err := crawler.CacheFilePath(c.root, relativePath)
	if err != nil {
		return crawler.DirectoryCacheEntry{}, fmt.Errorf("%w: %w", crawler.ErrCacheMiss, err)
	}
	raw, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return crawler.DirectoryCacheEntry{}, fmt.Errorf("%w: read %s: %w", crawler.ErrCacheMiss, path, err)
	}
	var entry crawler.DirectoryCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return crawler.DirectoryCacheEntry{}, fmt.Errorf("%w: decode %s: %w", crawler.ErrCacheMiss, path, err)
	}
	return entry, nil
}

// Store writes entry atomically: the JSON goes to a temp file that is then
// renamed over the previous listing.
func (c *DirectoryCache) Store(entry crawler.DirectoryCacheEntry) error {
	path, err := crawler.CacheFilePath(c.root, entry.RelativePath)
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating cache dir for %s: %w", path, err)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	tmp := path + tempSuffix
	if err := afero.WriteFile(c.fs, tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write cache entry %s: %w", tmp, err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("replace cache entry %s: %w", path, err)
	}
	return nil
}

// IsValid reports whether entry has not yet expired.
func (c *DirectoryCache) IsValid(entry crawler.DirectoryCacheEntry) bool {
	return entry.ValidAt(c.clock.Now())
}
