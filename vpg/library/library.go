// Package library persists asset records and answers the two queries the
// timeline needs: the bucket layout and the ordered contents of one bucket.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

var ErrNotFound = errors.New("asset not found")

// Repository is the asset store behind the timeline.
type Repository interface {
	grid.BucketFetcher

	Insert(ctx context.Context, a assets.Asset) error
	Get(ctx context.Context, id string) (assets.Asset, error)
	// Update saves every field of an existing asset.
	Update(ctx context.Context, a assets.Asset) error
	Delete(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetThumbnail(ctx context.Context, id, ref string) error
	// SetCapture updates capture time and position without touching other
	// fields. A zero takenAt or nil loc keeps the stored value.
	SetCapture(ctx context.Context, id string, takenAt time.Time, loc *assets.Location) error
	AddToAlbum(ctx context.Context, albumID string, ids ...string) error
	TagPerson(ctx context.Context, personID string, ids ...string) error
	// TimeBuckets returns the non-empty buckets matching filter, newest first.
	TimeBuckets(ctx context.Context, size assets.BucketSize, filter assets.Filter) ([]assets.BucketCount, error)
	// Page returns page number page (zero based) of req's bucket, newest first.
	Page(ctx context.Context, req grid.FetchRequest, page int) ([]assets.Asset, error)
	Close() error
}

// defaultPageSize applies when a FetchRequest carries no page size.
const defaultPageSize = 500

func pageSizeOf(req grid.FetchRequest) int {
	if req.PageSize <= 0 {
		return defaultPageSize
	}
	return req.PageSize
}

func sizeOf(size assets.BucketSize) assets.BucketSize {
	if size == "" {
		return assets.BucketMonth
	}
	return size
}

// sortNewestFirst orders by capture time descending, then ID ascending.
func sortNewestFirst(items []assets.Asset) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].TakenAt.Equal(items[j].TakenAt) {
			return items[i].TakenAt.After(items[j].TakenAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", grid.ErrFetchCancelled, err)
	}
	return nil
}
