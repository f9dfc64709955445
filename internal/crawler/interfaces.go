package crawler

import (
	"context"
	"io"
	"time"
)

// Client retrieves remote resources.
type Client interface {
	// GetStream issues a GET and returns the body. Callers must close it.
	GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error)
	// GetString issues a GET and returns the whole body as text.
	GetString(ctx context.Context, rawURL string) (string, error)
}

// LinkExtractor pulls child names out of an index page. The parent
// navigation entry is never returned.
type LinkExtractor interface {
	ExtractLinks(r io.Reader) ([]string, error)
}

// Queue holds pending fetch requests in priority order.
type Queue interface {
	Enqueue(req FetchRequest)
	TryDequeue() (FetchRequest, bool)
	IsEmpty() bool
	Len() int
}

// DirectoryCache persists directory listings between runs.
type DirectoryCache interface {
	Load(relativePath string) (DirectoryCacheEntry, error)
	Store(entry DirectoryCacheEntry) error
	IsValid(entry DirectoryCacheEntry) bool
}

// BlobStore writes mirrored files under the local base folder. Paths are
// repository-relative.
type BlobStore interface {
	// HasObject reports whether the file already exists with non-zero size.
	HasObject(relativePath string) (bool, error)
	// PutObject streams data into the file, replacing any previous content,
	// and returns the number of bytes written.
	PutObject(ctx context.Context, relativePath string, data io.Reader) (int64, error)
}

// FailureRecorder tracks URLs whose last attempt failed.
type FailureRecorder interface {
	MarkFailed(url string) error
	MarkRecovered(url string) error
}

// RetryPolicy decides whether a failed attempt is tried again.
type RetryPolicy interface {
	ShouldRetry(err error, failCount int) bool
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
