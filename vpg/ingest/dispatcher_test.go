package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

// recordingQueue keeps every enqueued job in order.
type recordingQueue struct {
	mu     sync.Mutex
	jobs   []Job
	failAt int
}

func (q *recordingQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAt > 0 && len(q.jobs)+1 == q.failAt {
		return errors.New("queue full")
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) names() []JobName {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]JobName, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Name
	}
	return out
}

func TestAssetUploadedOrdering(t *testing.T) {
	tests := []struct {
		name string
		typ  assets.AssetType
		want []JobName
	}{
		{"Image", assets.TypeImage, []JobName{JobThumbnailGeneration, JobExifExtraction}},
		{"Video", assets.TypeVideo, []JobName{JobThumbnailGeneration, JobVideoConversion, JobMetadataExtraction}},
		{"Other", assets.TypeOther, []JobName{JobThumbnailGeneration}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &recordingQueue{}
			d := NewDispatcher(q, zerolog.Nop())
			jobs, err := d.AssetUploaded(context.Background(), assets.Asset{ID: "a1", Type: tc.typ})
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.names())
			require.Len(t, jobs, len(tc.want))
			seen := map[string]bool{}
			for i, j := range jobs {
				assert.Equal(t, tc.want[i], j.Name)
				assert.Equal(t, "a1", j.AssetID)
				assert.False(t, j.EnqueuedAt.IsZero())
				assert.False(t, seen[j.ID.String()], "job ids must be unique")
				seen[j.ID.String()] = true
			}
		})
	}
}

func TestAssetUploadedQueueFailure(t *testing.T) {
	q := &recordingQueue{failAt: 2}
	d := NewDispatcher(q, zerolog.Nop())
	jobs, err := d.AssetUploaded(context.Background(), assets.Asset{ID: "v1", Type: assets.TypeVideo})
	require.Error(t, err)
	assert.Equal(t, []JobName{JobThumbnailGeneration}, q.names())
	assert.Len(t, jobs, 1)
}

func TestAssetSaved(t *testing.T) {
	q := &recordingQueue{}
	d := NewDispatcher(q, zerolog.Nop())
	job, err := d.AssetSaved(context.Background(), "a9")
	require.NoError(t, err)
	assert.Equal(t, JobSearchIndex, job.Name)
	assert.Equal(t, "a9", job.AssetID)
	assert.Equal(t, []JobName{JobSearchIndex}, q.names())
}
