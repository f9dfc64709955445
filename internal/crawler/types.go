package crawler

import (
	"strings"
	"sync/atomic"
	"time"
)

// FetchRequest describes one pending unit of work: a directory listing or a
// leaf file under the repository root.
//
// FetchRequest is a value. Retries travel as a copy produced by Retry, which
// keeps the QueueID so log lines for one logical request can be correlated.
type FetchRequest struct {
	// BaseURI is the repository root shared by every request in a run. It
	// always ends with "/".
	BaseURI string
	// RelativePath is the path under BaseURI. A trailing "/" marks a directory.
	RelativePath string
	// Priority orders the queue; lower values are dequeued first. The seed has
	// priority 0 and each child is one below its parent.
	Priority int
	// FailCount counts failed attempts of this logical request.
	FailCount int
	// QueueID identifies the request in logs only.
	QueueID uint64
}

// NewRootRequest builds the seed request for baseURI.
func NewRootRequest(seq *Sequence, baseURI string) FetchRequest {
	return FetchRequest{
		BaseURI: NormalizeBaseURI(baseURI),
		QueueID: seq.Next(),
	}
}

// IsDirectory reports whether the request denotes a directory listing.
// The repository root (empty RelativePath) is always a directory.
func (r FetchRequest) IsDirectory() bool {
	return r.RelativePath == "" || strings.HasSuffix(r.RelativePath, "/")
}

// URL returns the absolute URL of the request.
func (r FetchRequest) URL() string {
	return r.BaseURI + r.RelativePath
}

// Child builds the request for one item listed by a directory.
func (r FetchRequest) Child(seq *Sequence, item string) FetchRequest {
	return FetchRequest{
		BaseURI:      r.BaseURI,
		RelativePath: r.RelativePath + item,
		Priority:     r.Priority - 1,
		QueueID:      seq.Next(),
	}
}

// Retry returns the request for the next attempt after a failure.
func (r FetchRequest) Retry() FetchRequest {
	next := r
	next.FailCount++
	return next
}

// DirectoryCacheEntry is the persisted listing of one directory.
type DirectoryCacheEntry struct {
	BaseURI      string     `json:"baseUri"`
	RelativePath string     `json:"relativeUri"`
	Items        []string   `json:"items"`
	ExpiresAt    *time.Time `json:"cacheExpireDate,omitempty"`
}

// ValidAt reports whether the entry can be used without a network call at now.
func (e DirectoryCacheEntry) ValidAt(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.After(now)
}

// Outcome is the terminal state of one processed attempt.
type Outcome string

// Outcomes reported by the fetch engine. OutcomeInterrupted marks a failed
// attempt of a canceled run.
const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeCacheHit    Outcome = "cache_hit"
	OutcomeListed      Outcome = "listed"
	OutcomeDownloaded  Outcome = "downloaded"
	OutcomeRetried     Outcome = "retried"
	OutcomeAbandoned   Outcome = "abandoned"
	OutcomeInterrupted Outcome = "interrupted"
)

// Succeeded reports whether the attempt ended on the success path.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeSkipped, OutcomeCacheHit, OutcomeListed, OutcomeDownloaded:
		return true
	default:
		return false
	}
}

// Sequence hands out run-scoped queue IDs.
type Sequence struct {
	n atomic.Uint64
}

// NewSequence returns a sequence whose first ID is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next ID.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// NormalizeBaseURI trims whitespace and guarantees a trailing slash.
func NormalizeBaseURI(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasSuffix(raw, "/") {
		return raw
	}
	return raw + "/"
}
