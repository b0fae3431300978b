package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

// Dispatcher turns asset events into queued jobs.
type Dispatcher struct {
	queue  Queue
	logger zerolog.Logger
	now    func() time.Time
}

func NewDispatcher(queue Queue, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, logger: logger, now: time.Now}
}

// uploadJobs lists the jobs for a new asset in enqueue order.
func uploadJobs(t assets.AssetType) []JobName {
	names := []JobName{JobThumbnailGeneration}
	switch t {
	case assets.TypeVideo:
		names = append(names, JobVideoConversion, JobMetadataExtraction)
	case assets.TypeImage:
		names = append(names, JobExifExtraction)
	}
	return names
}

// AssetUploaded enqueues the jobs for a newly ingested asset and returns
// them in the order they were enqueued. A thumbnail job is always first.
// On a queue failure the jobs enqueued so far are returned with the error.
func (d *Dispatcher) AssetUploaded(ctx context.Context, a assets.Asset) ([]Job, error) {
	names := uploadJobs(a.Type)
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job := newJob(name, a.ID, d.now())
		if err := d.queue.Enqueue(ctx, job); err != nil {
			return jobs, fmt.Errorf("enqueue %s for %s: %w", name, a.ID, err)
		}
		jobs = append(jobs, job)
	}
	d.logger.Debug().Str("asset", a.ID).Str("type", string(a.Type)).Int("jobs", len(jobs)).Msg("upload jobs dispatched")
	return jobs, nil
}

// AssetSaved enqueues a search index update for the asset.
func (d *Dispatcher) AssetSaved(ctx context.Context, id string) (Job, error) {
	job := newJob(JobSearchIndex, id, d.now())
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return Job{}, fmt.Errorf("enqueue %s for %s: %w", JobSearchIndex, id, err)
	}
	return job, nil
}
