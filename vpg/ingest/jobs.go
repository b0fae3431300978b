// Package ingest runs the background work that follows an upload or a save:
// thumbnails, video conversion, metadata extraction and search indexing.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobName identifies a background job kind.
type JobName string

const (
	JobThumbnailGeneration JobName = "thumbnail-generation"
	JobVideoConversion     JobName = "video-conversion"
	JobMetadataExtraction  JobName = "metadata-extraction"
	JobExifExtraction      JobName = "exif-extraction"
	JobSearchIndex         JobName = "search-index"
)

var (
	ErrNoHandler    = errors.New("no handler registered for job")
	ErrRunnerClosed = errors.New("job runner closed")
	// ErrSkip is returned by a handler that had nothing to do.
	ErrSkip = errors.New("job skipped")
)

// Job is one unit of background work on an asset.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Name       JobName   `json:"name"`
	AssetID    string    `json:"assetId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func newJob(name JobName, assetID string, now time.Time) Job {
	return Job{ID: uuid.New(), Name: name, AssetID: assetID, EnqueuedAt: now}
}

// Queue accepts jobs for asynchronous execution.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Handler executes one job.
type Handler func(ctx context.Context, job Job) error
