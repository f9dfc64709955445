// Package failures keeps the set of URLs whose most recent attempt failed and
// mirrors it to the run's failure log.
package failures

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/JakeFAU/maven-tree-mirror/internal/metrics"
)

// LogFileName returns the failure log name for a run started at runTimestamp.
func LogFileName(runTimestamp string) string {
	return runTimestamp + "_failure.log"
}

// Tracker is a concurrency-safe set of failing URLs. Every change rewrites
// the whole log file while the lock is held, so the file always matches the
// set.
type Tracker struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	urls map[string]struct{}
}

// NewTracker returns an empty tracker writing to
// <logFolder>/<runTimestamp>_failure.log. The file is created on first change.
func NewTracker(fs afero.Fs, logFolder, runTimestamp string) (*Tracker, error) {
	if strings.TrimSpace(logFolder) == "" {
		return nil, fmt.Errorf("log folder is required")
	}
	if strings.TrimSpace(runTimestamp) == "" {
		return nil, fmt.Errorf("run timestamp is required")
	}
	return &Tracker{
		fs:   fs,
		path: filepath.Join(logFolder, LogFileName(runTimestamp)),
		urls: make(map[string]struct{}),
	}, nil
}

// Path returns the failure log location.
func (t *Tracker) Path() string {
	return t.path
}

// MarkFailed adds url to the set. Adding a URL already present is a no-op.
func (t *Tracker) MarkFailed(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.urls[url]; ok {
		return nil
	}
	t.urls[url] = struct{}{}
	metrics.SetOutstandingFailures(len(t.urls))
	return t.persistLocked()
}

// MarkRecovered removes url from the set. Removing an absent URL is a no-op.
func (t *Tracker) MarkRecovered(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.urls[url]; !ok {
		return nil
	}
	delete(t.urls, url)
	metrics.SetOutstandingFailures(len(t.urls))
	return t.persistLocked()
}

// Snapshot returns the failing URLs in sorted order.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedLocked()
}

// Len returns the number of failing URLs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.urls)
}

func (t *Tracker) sortedLocked() []string {
	out := make([]string, 0, len(t.urls))
	for u := range t.urls {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

func (t *Tracker) persistLocked() error {
	if err := t.fs.MkdirAll(filepath.Dir(t.path), 0o750); err != nil {
		return fmt.Errorf("create failure log dir: %w", err)
	}
	var b strings.Builder
	for _, u := range t.sortedLocked() {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	if err := afero.WriteFile(t.fs, t.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write failure log %s: %w", t.path, err)
	}
	return nil
}
