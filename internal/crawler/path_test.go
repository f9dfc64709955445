package crawler

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join("mirror", "root")
	testCases := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{"root", "", root, false},
		{"file", "org/a.txt", filepath.Join(root, "org", "a.txt"), false},
		{"directory", "org/apache/", filepath.Join(root, "org", "apache"), false},
		{"escaped", "org/a%20b.txt", filepath.Join(root, "org", "a b.txt"), false},
		{"inner dots", "org/../a.txt", filepath.Join(root, "a.txt"), false},
		{"traversal", "../etc/passwd", "", true},
		{"escaped traversal", "%2e%2e/secret", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath(root, tc.rel)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsafePath) {
					t.Fatalf("LocalPath(%q) error = %v, want ErrUnsafePath", tc.rel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath(%q) error = %v", tc.rel, err)
			}
			if got != tc.want {
				t.Errorf("LocalPath(%q) = %q; want %q", tc.rel, got, tc.want)
			}
		})
	}
}

func TestCacheFilePath(t *testing.T) {
	t.Parallel()

	got, err := CacheFilePath("cache", "org/apache/")
	if err != nil {
		t.Fatalf("CacheFilePath error = %v", err)
	}
	want := filepath.Join("cache", "org", "apache", CacheFileName)
	if got != want {
		t.Fatalf("CacheFilePath = %q; want %q", got, want)
	}

	got, err = CacheFilePath("cache", "")
	if err != nil {
		t.Fatalf("CacheFilePath(root) error = %v", err)
	}
	if got != filepath.Join("cache", CacheFileName) {
		t.Fatalf("CacheFilePath(root) = %q", got)
	}
}
