// Package dispatcher drains the request queue through a bounded pool of
// concurrent fetch attempts and detects when the run is finished.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/metrics"
)

// Processor runs one fetch attempt. Any follow-up requests must be enqueued
// before Process returns.
type Processor interface {
	Process(ctx context.Context, req crawler.FetchRequest) crawler.Outcome
}

// RootValidator checks the repository root before any work starts.
type RootValidator interface {
	ValidateRoot(ctx context.Context, rootURL string) error
}

// Config controls the pool size.
type Config struct {
	Parallelism int
}

// Stats is a point-in-time view of a run.
type Stats struct {
	Queued    int
	Active    int
	Processed int
	Outcomes  map[crawler.Outcome]int
}

// Dispatcher fans queue work out to at most Parallelism concurrent attempts.
type Dispatcher struct {
	queue       crawler.Queue
	processor   Processor
	validator   RootValidator
	parallelism int
	logger      *zap.Logger

	mu        sync.Mutex
	active    int
	processed int
	outcomes  map[crawler.Outcome]int
}

// New creates a Dispatcher. validator may be nil when only Run is used.
func New(
	queue crawler.Queue,
	processor Processor,
	validator RootValidator,
	cfg Config,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if queue == nil {
		return nil, errors.New("queue is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &Dispatcher{
		queue:       queue,
		processor:   processor,
		validator:   validator,
		parallelism: parallelism,
		logger:      logger,
		outcomes:    make(map[crawler.Outcome]int),
	}, nil
}

// Start validates the root of seed, enqueues it and runs to completion. A
// failed validation returns before anything is enqueued.
func (d *Dispatcher) Start(ctx context.Context, seed crawler.FetchRequest) error {
	if d.validator != nil {
		if err := d.validator.ValidateRoot(ctx, seed.URL()); err != nil {
			if !errors.Is(err, crawler.ErrRootValidation) {
				err = fmt.Errorf("%w: %w", crawler.ErrRootValidation, err)
			}
			return err
		}
	}
	d.queue.Enqueue(seed)
	return d.Run(ctx)
}

// Run drains the queue until it is empty and no attempt is in flight. When
// ctx is canceled it stops dequeuing, waits for in-flight attempts and
// returns the context error.
func (d *Dispatcher) Run(ctx context.Context) error {
	done := make(chan crawler.Outcome, d.parallelism)
	active := 0

	for {
		if ctx.Err() != nil {
			for active > 0 {
				active = d.finish(<-done, active)
			}
			d.logSummary("run canceled")
			return fmt.Errorf("run canceled: %w", ctx.Err())
		}

		if active == d.parallelism {
			active = d.await(ctx, done, active)
			continue
		}

		req, ok := d.queue.TryDequeue()
		if !ok {
			if active == 0 {
				d.logSummary("run complete")
				return nil
			}
			// Busy attempts may still enqueue children.
			active = d.await(ctx, done, active)
			continue
		}

		active++
		d.setActive(active)
		metrics.IncActiveWorkers()
		go d.attempt(ctx, req, done)
	}
}

// Stats reports queue depth, in-flight attempts and outcome counts so far.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	outcomes := make(map[crawler.Outcome]int, len(d.outcomes))
	for k, v := range d.outcomes {
		outcomes[k] = v
	}
	return Stats{
		Queued:    d.queue.Len(),
		Active:    d.active,
		Processed: d.processed,
		Outcomes:  outcomes,
	}
}

func (d *Dispatcher) attempt(ctx context.Context, req crawler.FetchRequest, done chan<- crawler.Outcome) {
	outcome := crawler.OutcomeAbandoned
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("fetch attempt panicked",
				zap.Any("panic", r),
				zap.Uint64("queue_id", req.QueueID),
				zap.String("url", req.URL()),
			)
		}
		done <- outcome
	}()
	outcome = d.processor.Process(ctx, req)
}

func (d *Dispatcher) await(ctx context.Context, done <-chan crawler.Outcome, active int) int {
	select {
	case outcome := <-done:
		return d.finish(outcome, active)
	case <-ctx.Done():
		return active
	}
}

func (d *Dispatcher) finish(outcome crawler.Outcome, active int) int {
	active--
	metrics.DecActiveWorkers()
	metrics.SetQueueDepth(d.queue.Len())

	d.mu.Lock()
	d.active = active
	d.processed++
	d.outcomes[outcome]++
	d.mu.Unlock()
	return active
}

func (d *Dispatcher) setActive(active int) {
	d.mu.Lock()
	d.active = active
	d.mu.Unlock()
}

func (d *Dispatcher) logSummary(msg string) {
	stats := d.Stats()
	fields := []zap.Field{
		zap.Int("processed", stats.Processed),
		zap.Int("queued", stats.Queued),
	}
	for _, o := range []crawler.Outcome{
		crawler.OutcomeListed,
		crawler.OutcomeCacheHit,
		crawler.OutcomeDownloaded,
		crawler.OutcomeSkipped,
		crawler.OutcomeRetried,
		crawler.OutcomeAbandoned,
		crawler.OutcomeInterrupted,
	} {
		fields = append(fields, zap.Int(string(o), stats.Outcomes[o]))
	}
	d.logger.Info(msg, fields...)
}
