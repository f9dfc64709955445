// Package worker implements the per-request fetch pipeline: resolve the local
// copy, consult the directory cache, fetch, then list or store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// CacheTTL is how long a stored directory listing stays valid. Zero
	// disables reuse.
	CacheTTL time.Duration
}

// Deps bundles the collaborators a Worker needs.
type Deps struct {
	Queue     crawler.Queue
	Client    crawler.Client
	Extractor crawler.LinkExtractor
	Cache     crawler.DirectoryCache
	Blobs     crawler.BlobStore
	Failures  crawler.FailureRecorder
	Retry     crawler.RetryPolicy
	Clock     crawler.Clock
	Sequence  *crawler.Sequence
}

// Worker executes single fetch attempts. It is safe for concurrent use as
// long as its collaborators are.
type Worker struct {
	queue     crawler.Queue
	client    crawler.Client
	extractor crawler.LinkExtractor
	cache     crawler.DirectoryCache
	blobs     crawler.BlobStore
	failures  crawler.FailureRecorder
	retry     crawler.RetryPolicy
	clock     crawler.Clock
	seq       *crawler.Sequence
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Worker, error) {
	switch {
	case deps.Queue == nil:
		return nil, errors.New("queue is required")
	case deps.Client == nil:
		return nil, errors.New("client is required")
	case deps.Extractor == nil:
		return nil, errors.New("link extractor is required")
	case deps.Cache == nil:
		return nil, errors.New("directory cache is required")
	case deps.Blobs == nil:
		return nil, errors.New("blob store is required")
	case deps.Failures == nil:
		return nil, errors.New("failure recorder is required")
	case deps.Retry == nil:
		return nil, errors.New("retry policy is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.Sequence == nil:
		return nil, errors.New("sequence is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	return &Worker{
		queue:     deps.Queue,
		client:    deps.Client,
		extractor: deps.Extractor,
		cache:     deps.Cache,
		blobs:     deps.Blobs,
		failures:  deps.Failures,
		retry:     deps.Retry,
		clock:     deps.Clock,
		seq:       deps.Sequence,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// ValidateRoot fetches the repository root and requires at least one child
// link. Any failure wraps crawler.ErrRootValidation.
func (w *Worker) ValidateRoot(ctx context.Context, rootURL string) error {
	page, err := w.client.GetString(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %w", crawler.ErrRootValidation, rootURL, err)
	}
	links, err := w.extractor.ExtractLinks(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", crawler.ErrRootValidation, rootURL, err)
	}
	if len(links) == 0 {
		return fmt.Errorf("%w: %s lists no entries", crawler.ErrRootValidation, rootURL)
	}
	w.logger.Info("root validated", zap.String("url", rootURL), zap.Int("entries", len(links)))
	return nil
}

// Process runs one attempt of req to completion. Children and retries are
// enqueued before it returns.
func (w *Worker) Process(ctx context.Context, req crawler.FetchRequest) crawler.Outcome {
	url := req.URL()
	logger := w.logger.With(
		zap.Uint64("queue_id", req.QueueID),
		zap.String("url", url),
		zap.Int("priority", req.Priority),
		zap.Int("fail_count", req.FailCount),
	)

	outcome, err := w.attempt(ctx, req, logger)
	if err != nil {
		outcome = w.fail(ctx, req, err, logger)
	} else {
		if rErr := w.failures.MarkRecovered(url); rErr != nil {
			logger.Warn("failure log update failed", zap.Error(rErr))
		}
		logger.Debug("request completed", zap.String("outcome", string(outcome)))
	}
	metrics.ObserveOutcome(string(outcome))
	return outcome
}

func (w *Worker) attempt(ctx context.Context, req crawler.FetchRequest, logger *zap.Logger) (crawler.Outcome, error) {
	if req.IsDirectory() {
		if items, ok := w.cachedListing(req, logger); ok {
			w.expand(req, items)
			return crawler.OutcomeCacheHit, nil
		}
	} else {
		exists, err := w.blobs.HasObject(req.RelativePath)
		if err != nil {
			return "", fmt.Errorf("resolve local file: %w", err)
		}
		if exists {
			return crawler.OutcomeSkipped, nil
		}
	}

	body, err := w.client.GetStream(ctx, req.URL())
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	if req.IsDirectory() {
		return w.listDirectory(req, body, logger)
	}
	return w.storeFile(ctx, req, body, logger)
}

func (w *Worker) cachedListing(req crawler.FetchRequest, logger *zap.Logger) ([]string, bool) {
	entry, err := w.cache.Load(req.RelativePath)
	if err != nil {
		if !errors.Is(err, crawler.ErrCacheMiss) {
			logger.Debug("directory cache load failed", zap.Error(err))
		}
		return nil, false
	}
	if !w.cache.IsValid(entry) {
		return nil, false
	}
	return entry.Items, true
}

func (w *Worker) listDirectory(
	req crawler.FetchRequest,
	body io.ReadCloser,
	logger *zap.Logger,
) (crawler.Outcome, error) {
	items, err := w.extractor.ExtractLinks(body)
	w.closeBody(body, logger)
	if err != nil {
		return "", fmt.Errorf("parse listing: %w", err)
	}

	expires := w.clock.Now().Add(w.cfg.CacheTTL)
	entry := crawler.DirectoryCacheEntry{
		BaseURI:      req.BaseURI,
		RelativePath: req.RelativePath,
		Items:        items,
		ExpiresAt:    &expires,
	}
	if err := w.cache.Store(entry); err != nil {
		logger.Warn("directory cache store failed", zap.Error(err))
	}

	w.expand(req, items)
	logger.Debug("directory listed", zap.Int("children", len(items)))
	return crawler.OutcomeListed, nil
}

func (w *Worker) storeFile(
	ctx context.Context,
	req crawler.FetchRequest,
	body io.ReadCloser,
	logger *zap.Logger,
) (crawler.Outcome, error) {
	n, err := w.blobs.PutObject(ctx, req.RelativePath, body)
	w.closeBody(body, logger)
	if err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}
	metrics.ObserveBytes(req.URL(), n)
	logger.Debug("file downloaded", zap.Int64("bytes", n))
	return crawler.OutcomeDownloaded, nil
}

func (w *Worker) expand(req crawler.FetchRequest, items []string) {
	for _, item := range items {
		w.queue.Enqueue(req.Child(w.seq, item))
	}
}

func (w *Worker) fail(
	ctx context.Context,
	req crawler.FetchRequest,
	cause error,
	logger *zap.Logger,
) crawler.Outcome {
	if err := w.failures.MarkFailed(req.URL()); err != nil {
		logger.Warn("failure log update failed", zap.Error(err))
	}
	if ctx.Err() != nil {
		logger.Warn("attempt interrupted", zap.Error(cause))
		return crawler.OutcomeInterrupted
	}
	if w.retry.ShouldRetry(cause, req.FailCount) {
		w.queue.Enqueue(req.Retry())
		logger.Warn("attempt failed, retrying", zap.Error(cause))
		return crawler.OutcomeRetried
	}
	logger.Error("request abandoned", zap.Error(cause), zap.Int("attempts", req.FailCount+1))
	return crawler.OutcomeAbandoned
}

func (w *Worker) closeBody(body io.Closer, logger *zap.Logger) {
	if err := body.Close(); err != nil {
		logger.Debug("closing response body failed", zap.Error(err))
	}
}
