package grid

import (
	"context"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

// FetchRequest describes one bucket load.
type FetchRequest struct {
	PageSize  int
	BucketKey string
	Size      assets.BucketSize
	Filter    assets.Filter
}

// BucketFetcher returns the ordered contents of one bucket. Implementations
// must stop when ctx is cancelled and report it as ErrFetchCancelled or an
// error wrapping context.Canceled.
type BucketFetcher interface {
	FetchBucket(ctx context.Context, req FetchRequest) ([]assets.Asset, error)
}

// FetcherFunc adapts a function to BucketFetcher.
type FetcherFunc func(ctx context.Context, req FetchRequest) ([]assets.Asset, error)

func (f FetcherFunc) FetchBucket(ctx context.Context, req FetchRequest) ([]assets.Asset, error) {
	return f(ctx, req)
}
