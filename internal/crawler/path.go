package crawler

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// CacheFileName is the per-directory listing file written under the cache root.
const CacheFileName = "maven_tree_info.json"

// LocalPath maps a relative repository path below root. Percent-encoded
// segments are decoded; paths resolving outside root are rejected.
func LocalPath(root, relativePath string) (string, error) {
	rel, err := url.PathUnescape(relativePath)
	if err != nil {
		rel = relativePath
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relativePath)
	}

	cleanRoot := filepath.Clean(root)
	full := filepath.Clean(filepath.Join(cleanRoot, filepath.FromSlash(rel)))
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relativePath)
	}
	return full, nil
}

// CacheFilePath returns the listing file for the directory at relativePath.
func CacheFilePath(cacheRoot, relativePath string) (string, error) {
	dir, err := LocalPath(cacheRoot, relativePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CacheFileName), nil
}
