package grid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

// estimate18 makes every item worth 18px so scenario numbers stay readable.
func estimate18(count int, _ float64) float64 { return float64(count) * 18 }

func makeAssets(bucket string, n int) []assets.Asset {
	base, _ := time.Parse("2006-01", bucket)
	out := make([]assets.Asset, n)
	for i := range out {
		out[i] = assets.Asset{
			ID:      fmt.Sprintf("%s-%d", bucket, i+1),
			Type:    assets.TypeImage,
			TakenAt: base.Add(time.Duration(n-i) * time.Hour),
		}
	}
	return out
}

// staticFetcher serves fixed bucket contents and counts calls.
type staticFetcher struct {
	mu      sync.Mutex
	buckets map[string][]assets.Asset
	errs    map[string]error
	calls   map[string]int
	lastReq FetchRequest
}

func newStaticFetcher() *staticFetcher {
	return &staticFetcher{
		buckets: make(map[string][]assets.Asset),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *staticFetcher) set(key string, items []assets.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[key] = items
}

func (f *staticFetcher) fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, key)
		return
	}
	f.errs[key] = err
}

func (f *staticFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *staticFetcher) FetchBucket(ctx context.Context, req FetchRequest) ([]assets.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.BucketKey]++
	f.lastReq = req
	if err := f.errs[req.BucketKey]; err != nil {
		return nil, err
	}
	src := f.buckets[req.BucketKey]
	out := make([]assets.Asset, len(src))
	copy(out, src)
	return out, nil
}

type fetchResult struct {
	assets []assets.Asset
	err    error
}

// pendingFetch is one fetch held open until the test releases it.
type pendingFetch struct {
	ctx     context.Context
	req     FetchRequest
	release chan fetchResult
}

// gatedFetcher hands every call to the test and ignores cancellation, so a
// superseded fetch can still resolve with data.
type gatedFetcher struct {
	calls chan *pendingFetch
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan *pendingFetch, 16)}
}

func (f *gatedFetcher) FetchBucket(ctx context.Context, req FetchRequest) ([]assets.Asset, error) {
	p := &pendingFetch{ctx: ctx, req: req, release: make(chan fetchResult, 1)}
	f.calls <- p
	r := <-p.release
	return r.assets, r.err
}
