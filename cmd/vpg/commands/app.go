package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/client"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/ingest"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/search"
)

// app is the local library with its job pipeline.
type app struct {
	library    library.Repository
	index      *search.Index
	runner     *ingest.Runner
	dispatcher *ingest.Dispatcher
}

func openApp(ctx context.Context) (*app, error) {
	lib, err := library.OpenSQLLibrary(ctx, cfg.Library.DSN, library.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	provider, err := search.NewProvider(cfg.Search.Provider, cfg.Search.Dimensions)
	if err != nil {
		lib.Close()
		return nil, err
	}
	index := search.NewIndex(provider)

	runner := ingest.NewRunner(cfg.Jobs.Workers, cfg.Jobs.QueueCapacity, logger)
	handlers := &ingest.Handlers{
		Library:         lib,
		Index:           index,
		ThumbnailDir:    cfg.Library.ThumbnailDir,
		ThumbnailHeight: int(cfg.Grid.ThumbnailHeight),
		Logger:          logger,
	}
	handlers.Register(runner)

	return &app{
		library:    lib,
		index:      index,
		runner:     runner,
		dispatcher: ingest.NewDispatcher(runner, logger),
	}, nil
}

// Close drains pending jobs before closing the database.
func (a *app) Close() error {
	return errors.Join(a.runner.Close(), a.library.Close())
}

// timelineSource is the layout and bucket source of a timeline, either the
// local library or a remote server.
type timelineSource interface {
	grid.BucketFetcher
	TimeBuckets(ctx context.Context, size assets.BucketSize, filter assets.Filter) ([]assets.BucketCount, error)
}

// remoteSource fetches from a server. Requests carry no timeout of their
// own; the store cancels them through the bucket context.
func remoteSource(baseURL string) timelineSource {
	return client.New(baseURL, client.WithLogger(logger))
}

func bucketSize() (assets.BucketSize, error) {
	size, err := assets.ParseBucketSize(cfg.Grid.BucketSize)
	if err != nil {
		return "", fmt.Errorf("grid.bucketSize: %w", err)
	}
	return size, nil
}

func newStore(fetcher grid.BucketFetcher, size assets.BucketSize) *grid.Store {
	estimator := grid.NewHeightEstimator(cfg.Grid.ThumbnailHeight, cfg.Grid.AspectRatio, cfg.Grid.RowFill)
	return grid.New(estimator, fetcher,
		grid.WithLogger(logger),
		grid.WithPageSize(cfg.Grid.PageSize),
		grid.WithBucketSize(size),
		grid.WithPrunedHeightDebit(cfg.Grid.DebitPrunedBuckets),
	)
}
