package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Stats are cumulative runner counters.
type Stats struct {
	Processed int64
	Failed    int64
	Skipped   int64
	Queued    int
	// AvgDuration is the mean handler time over processed and failed jobs.
	AvgDuration time.Duration
}

// Runner is a Queue backed by a buffered channel and a fixed worker pool.
type Runner struct {
	logger   zerolog.Logger
	jobs     chan Job
	workers  *pool.Pool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	closed   bool
	// hmu guards handlers; workers never take mu.
	hmu      sync.RWMutex
	handlers map[JobName]Handler

	processed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	busyNanos atomic.Int64
}

// NewRunner starts workerCount workers reading from a queue of queueCapacity jobs.
func NewRunner(workerCount, queueCapacity int, logger zerolog.Logger) *Runner {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueCapacity < 0 {
		queueCapacity = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:   logger,
		jobs:     make(chan Job, queueCapacity),
		workers:  pool.New().WithMaxGoroutines(workerCount),
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[JobName]Handler),
	}
	for i := 0; i < workerCount; i++ {
		id := i
		r.workers.Go(func() { r.worker(id) })
	}
	return r
}

// Handle registers h for jobs named name, replacing any previous handler.
func (r *Runner) Handle(name JobName, h Handler) {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	r.handlers[name] = h
}

// Enqueue blocks while the queue is full.
func (r *Runner) Enqueue(ctx context.Context, job Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}
	select {
	case r.jobs <- job:
		r.logger.Debug().Str("job", string(job.Name)).Str("asset", job.AssetID).Msg("job queued")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) worker(id int) {
	r.logger.Debug().Int("worker_id", id).Msg("job worker started")
	for job := range r.jobs {
		if err := r.Run(r.ctx, job); err != nil && !errors.Is(err, ErrSkip) && !errors.Is(err, ErrNoHandler) {
			r.logger.Error().Err(err).Str("job", string(job.Name)).Str("asset", job.AssetID).Msg("job failed")
		}
	}
	r.logger.Debug().Int("worker_id", id).Msg("job worker stopped")
}

// Run executes job synchronously on the calling goroutine and records the outcome.
func (r *Runner) Run(ctx context.Context, job Job) error {
	r.hmu.RLock()
	h, ok := r.handlers[job.Name]
	r.hmu.RUnlock()
	if !ok {
		r.skipped.Add(1)
		r.logger.Debug().Str("job", string(job.Name)).Str("asset", job.AssetID).Msg("no handler, job skipped")
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Name)
	}

	start := time.Now()
	err := h(ctx, job)
	switch {
	case errors.Is(err, ErrSkip):
		r.skipped.Add(1)
		return err
	case err != nil:
		r.failed.Add(1)
	default:
		r.processed.Add(1)
	}
	r.busyNanos.Add(int64(time.Since(start)))
	if err != nil {
		return fmt.Errorf("%s %s: %w", job.Name, job.AssetID, err)
	}
	return nil
}

func (r *Runner) Stats() Stats {
	s := Stats{
		Processed: r.processed.Load(),
		Failed:    r.failed.Load(),
		Skipped:   r.skipped.Load(),
		Queued:    len(r.jobs),
	}
	if n := s.Processed + s.Failed; n > 0 {
		s.AvgDuration = time.Duration(r.busyNanos.Load() / n)
	}
	return s
}

// Close stops accepting jobs, drains the queue and waits for the workers.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	r.workers.Wait()
	r.cancel()
	r.logger.Info().Int64("processed", r.processed.Load()).Int64("failed", r.failed.Load()).Msg("job runner closed")
	return nil
}

var _ Queue = (*Runner)(nil)
