// Package listing extracts child entries from HTML directory index pages.
package listing

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParentLink is the navigation entry every index page carries.
const ParentLink = "../"

// Extractor returns the relative hrefs of an index page in document order.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractLinks parses r and returns every anchor href that names a direct or
// nested child of the page. The parent entry, sort and fragment links,
// absolute URLs, rooted paths and paths with dot segments are dropped.
// Duplicates keep their first position.
func (e *Extractor) ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	seen := make(map[string]struct{})
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !Mirrorable(href) {
			return
		}
		if _, exists := seen[href]; exists {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links, nil
}

// Mirrorable reports whether href can be appended to the page's relative
// path and still address something below it.
func Mirrorable(href string) bool {
	if href == "" || href == ParentLink {
		return false
	}
	if strings.ContainsAny(href, "?#") {
		return false
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, `\`) {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() || u.Host != "" {
		return false
	}
	decoded, err := url.PathUnescape(href)
	if err != nil {
		return false
	}
	for _, seg := range strings.FieldsFunc(decoded, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
