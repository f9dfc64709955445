// Package local implements the on-disk stores of the mirror: mirrored files
// and per-directory listing caches.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
)

const tempSuffix = ".part"

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where mirrored files are written.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes mirrored files to a filesystem.
type BlobStore struct {
	fs      afero.Fs
	baseDir string
}

// New creates a blob store on the OS filesystem.
func New(cfg Config) (*BlobStore, error) {
	return NewWithFS(afero.NewOsFs(), cfg)
}

// NewWithFS creates a blob store on fs, creating BaseDir when missing.
func NewWithFS(fs afero.Fs, cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := fs.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := fs.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &BlobStore{
		fs:      fs,
		baseDir: filepath.Clean(cfg.BaseDir),
	}, nil
}

// BaseDir returns the root the store writes below.
func (s *BlobStore) BaseDir() string {
	return s.baseDir
}

// HasObject reports whether the file mirrored at relativePath exists and is
// non-empty.
func (s *BlobStore) HasObject(relativePath string) (bool, error) {
	fullPath, err := s.resolve(relativePath)
	if err != nil {
		return false, err
	}
	info, err := s.fs.Stat(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", fullPath, err)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

// PutObject streams data to the file mirrored at relativePath. The content
// lands in a sibling temp file first and is renamed into place once fully
// written.
func (s *BlobStore) PutObject(ctx context.Context, relativePath string, data io.Reader) (int64, error) {
	fullPath, err := s.resolve(relativePath)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context canceled: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return 0, fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmpPath := fullPath + tempSuffix
	f, err := s.fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, copyErr := io.Copy(f, contextReader{ctx: ctx, r: data})
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = s.fs.Remove(tmpPath)
		return n, fmt.Errorf("failed to write file: %w", copyErr)
	}
	if err := s.fs.Rename(tmpPath, fullPath); err != nil {
		_ = s.fs.Remove(tmpPath)
		return n, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (s *BlobStore) resolve(relativePath string) (string, error) {
	if strings.TrimSpace(relativePath) == "" {
		return "", fmt.Errorf("path is required")
	}
	fullPath, err := crawler.LocalPath(s.baseDir, relativePath)
	if err != nil {
		return "", err
	}
	if fullPath == s.baseDir {
		return "", fmt.Errorf("path %q resolves to the base directory", relativePath)
	}
	return fullPath, nil
}

// contextReader stops a long copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
