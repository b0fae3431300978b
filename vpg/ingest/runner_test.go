package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerDrainsOnClose(t *testing.T) {
	r := NewRunner(3, 64, zerolog.Nop())
	var handled atomic.Int64
	r.Handle(JobSearchIndex, func(ctx context.Context, job Job) error {
		handled.Add(1)
		return nil
	})

	for i := 0; i < 50; i++ {
		require.NoError(t, r.Enqueue(context.Background(), newJob(JobSearchIndex, "a", timeZero)))
	}
	require.NoError(t, r.Close())

	assert.Equal(t, int64(50), handled.Load())
	stats := r.Stats()
	assert.Equal(t, int64(50), stats.Processed)
	assert.Equal(t, 0, stats.Queued)

	assert.ErrorIs(t, r.Enqueue(context.Background(), newJob(JobSearchIndex, "a", timeZero)), ErrRunnerClosed)
	assert.NoError(t, r.Close())
}

func TestRunnerOutcomes(t *testing.T) {
	r := NewRunner(1, 8, zerolog.Nop())
	defer r.Close()
	boom := errors.New("boom")
	r.Handle(JobExifExtraction, func(ctx context.Context, job Job) error { return ErrSkip })
	r.Handle(JobThumbnailGeneration, func(ctx context.Context, job Job) error { return boom })
	r.Handle(JobSearchIndex, func(ctx context.Context, job Job) error { return nil })

	ctx := context.Background()
	assert.ErrorIs(t, r.Run(ctx, newJob(JobExifExtraction, "a", timeZero)), ErrSkip)
	assert.ErrorIs(t, r.Run(ctx, newJob(JobThumbnailGeneration, "a", timeZero)), boom)
	assert.NoError(t, r.Run(ctx, newJob(JobSearchIndex, "a", timeZero)))
	assert.ErrorIs(t, r.Run(ctx, newJob(JobVideoConversion, "a", timeZero)), ErrNoHandler)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.Skipped)
}

func TestRunnerEnqueueHonoursContext(t *testing.T) {
	r := NewRunner(1, 0, zerolog.Nop())
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	r.Handle(JobSearchIndex, func(ctx context.Context, job Job) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	require.NoError(t, r.Enqueue(context.Background(), newJob(JobSearchIndex, "first", timeZero)))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Enqueue(ctx, newJob(JobSearchIndex, "second", timeZero))
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, r.Close())
	assert.Equal(t, int64(1), r.Stats().Processed)
}
