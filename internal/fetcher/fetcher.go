// Package fetcher combines the page and stream fetchers into one client.
package fetcher

import (
	"context"
	"io"
)

// PageFetcher returns whole index pages.
type PageFetcher interface {
	GetString(ctx context.Context, rawURL string) (string, error)
}

// StreamFetcher returns response bodies as streams.
type StreamFetcher interface {
	GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Composite routes GetString to the page fetcher and GetStream to the
// stream fetcher.
type Composite struct {
	pages   PageFetcher
	streams StreamFetcher
}

// NewComposite builds a composite client.
func NewComposite(pages PageFetcher, streams StreamFetcher) *Composite {
	return &Composite{pages: pages, streams: streams}
}

// GetString delegates to the page fetcher.
func (c *Composite) GetString(ctx context.Context, rawURL string) (string, error) {
	return c.pages.GetString(ctx, rawURL)
}

// GetStream delegates to the stream fetcher.
func (c *Composite) GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return c.streams.GetStream(ctx, rawURL)
}
