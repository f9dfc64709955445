package fetcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
)

var _ crawler.Client = (*Composite)(nil)

type pageStub struct{ calls int }

func (p *pageStub) GetString(context.Context, string) (string, error) {
	p.calls++
	return "page", nil
}

type streamStub struct{ calls int }

func (s *streamStub) GetStream(context.Context, string) (io.ReadCloser, error) {
	s.calls++
	return io.NopCloser(strings.NewReader("stream")), nil
}

func TestCompositeRoutes(t *testing.T) {
	t.Parallel()

	pages := &pageStub{}
	streams := &streamStub{}
	c := NewComposite(pages, streams)

	text, err := c.GetString(context.Background(), "https://repo.example/")
	if err != nil || text != "page" {
		t.Fatalf("GetString = %q, %v", text, err)
	}
	body, err := c.GetStream(context.Background(), "https://repo.example/a.jar")
	if err != nil {
		t.Fatalf("GetStream error: %v", err)
	}
	_ = body.Close()

	if pages.calls != 1 || streams.calls != 1 {
		t.Fatalf("unexpected routing: pages=%d streams=%d", pages.calls, streams.calls)
	}
}
