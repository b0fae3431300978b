// Package grid keeps a very large, chronologically ordered asset collection
// renderable without loading it eagerly. The collection is partitioned into
// time buckets that are fetched on demand; the store keeps per-bucket
// heights, the cumulative timeline height and the flattened asset list
// consistent across cancellable concurrent loads and local mutations.
//
// Every mutation runs as a command on a single control goroutine, so a
// mutation always completes before the next one starts. Fetches run outside
// that goroutine and apply their result through another command.
package grid

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/geo"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/selection"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const defaultPageSize = 500

// Store is the mutation and query surface over a GridState.
type Store struct {
	estimator HeightEstimator
	fetcher   BucketFetcher
	logger    zerolog.Logger

	pageSize      int
	bucketSize    assets.BucketSize
	debitPruned   bool
	prefetchLimit int

	// owned by the control goroutine
	state    *GridState
	selected *selection.Set
	geoIdx   *geo.Index
	geoDirty bool

	metrics loadMetrics

	root       context.Context
	rootCancel context.CancelFunc
	cmds       chan func()
	quit       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for fetch outcomes.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithPageSize sets the page size passed to the fetcher.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithBucketSize sets the bucket span passed to the fetcher.
func WithBucketSize(size assets.BucketSize) Option {
	return func(s *Store) { s.bucketSize = size }
}

// WithPrunedHeightDebit makes RemoveItem subtract the height of a bucket it
// prunes from the timeline height. Off by default: the timeline height then
// keeps counting pruned buckets.
func WithPrunedHeightDebit(enabled bool) Option {
	return func(s *Store) { s.debitPruned = enabled }
}

// WithPrefetchConcurrency bounds the concurrent fetches started by Prefetch.
func WithPrefetchConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.prefetchLimit = n
		}
	}
}

// New creates a store and starts its control goroutine. Close releases it.
func New(estimator HeightEstimator, fetcher BucketFetcher, opts ...Option) *Store {
	if estimator == nil {
		estimator = NewHeightEstimator(235, 1.5, 0.7)
	}
	root, cancel := context.WithCancel(context.Background())
	s := &Store{
		estimator:     estimator,
		fetcher:       fetcher,
		logger:        zerolog.Nop(),
		pageSize:      defaultPageSize,
		bucketSize:    assets.BucketMonth,
		prefetchLimit: 4,
		state:         newGridState(),
		selected:      selection.New(),
		geoDirty:      true,
		root:          root,
		rootCancel:    cancel,
		cmds:          make(chan func()),
		quit:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case cmd := <-s.cmds:
			cmd()
		case <-s.quit:
			return
		}
	}
}

// exec runs fn on the control goroutine and waits for it to finish.
func (s *Store) exec(fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() {
		defer close(done)
		fn()
	}:
	case <-s.quit:
		return ErrStoreClosed
	}
	<-done
	return nil
}

// Close resets the state, cancelling every in-flight fetch, and stops the
// control goroutine. Later calls return ErrStoreClosed.
func (s *Store) Close() error {
	err := ErrStoreClosed
	s.closeOnce.Do(func() {
		err = s.Reset()
		close(s.quit)
		s.wg.Wait()
		s.rootCancel()
	})
	return err
}

// refresh rebuilds the flattened list after any change to a bucket's assets.
func (s *Store) refresh(gs *GridState) {
	gs.recomputeItems()
	s.geoDirty = true
}

// discard cancels every bucket context of gs and releases waiters.
func (s *Store) discard(gs *GridState) {
	for _, b := range gs.buckets {
		b.lc.cancel()
		if b.attempt != nil {
			b.attempt.finish(nil)
			b.attempt = nil
		}
	}
}

// SetInitialState lays out one Empty bucket per layout entry with an
// estimated height. It fails with ErrInvalidLayout on a repeated key and
// leaves the current state untouched in that case. No fetch is issued.
func (s *Store) SetInitialState(viewportHeight, viewportWidth float64, layout []assets.BucketCount, filter assets.Filter) error {
	seen := make(map[string]bool, len(layout))
	for _, entry := range layout {
		if seen[entry.TimeBucket] {
			return fmt.Errorf("%w: duplicate bucket key %q", ErrInvalidLayout, entry.TimeBucket)
		}
		seen[entry.TimeBucket] = true
	}

	return s.exec(func() {
		s.discard(s.state)

		gs := newGridState()
		gs.viewportHeight = viewportHeight
		gs.viewportWidth = viewportWidth
		gs.filter = filter
		gs.buckets = make([]*TimeBucket, 0, len(layout))
		for _, entry := range layout {
			b := &TimeBucket{
				Key:    entry.TimeBucket,
				Count:  entry.Count,
				Height: s.estimator(entry.Count, viewportWidth),
				Assets: []assets.Asset{},
				lc:     newLoadContext(s.root),
			}
			gs.buckets = append(gs.buckets, b)
			gs.index.insert(b)
			gs.timelineHeight += b.Height
		}
		gs.initialized = true

		s.state = gs
		s.selected.Clear()
		s.geoDirty = true

		s.logger.Debug().
			Int("buckets", len(gs.buckets)).
			Float64("timeline_height", gs.timelineHeight).
			Msg("timeline layout initialized")
	})
}

// lookupBucket resolves key against the current state.
func (s *Store) lookupBucket(key string) (*TimeBucket, error) {
	if !s.state.initialized {
		return nil, ErrNotInitialized
	}
	b, ok := s.state.index.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, key)
	}
	return b, nil
}

// RequestBucket loads a bucket's assets. It returns at once for a Loaded
// bucket and joins the in-flight fetch of a Loading one. A cancelled fetch
// returns nil and leaves the bucket Empty; any other failure leaves it Empty
// and is returned as a *FetchError. ctx only bounds the caller's wait: the
// fetch itself is stopped solely through CancelBucket, CancelAll or Reset.
func (s *Store) RequestBucket(ctx context.Context, key string) error {
	var (
		attempt *loadAttempt
		issue   bool
		gs      *GridState
		req     FetchRequest
		opErr   error
	)
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		switch b.state {
		case Loaded:
			return
		case Loading:
			attempt = b.attempt
			return
		}
		attempt = newLoadAttempt(b.lc)
		b.attempt = attempt
		b.state = Loading
		issue = true
		gs = s.state
		req = FetchRequest{
			PageSize:  s.pageSize,
			BucketKey: key,
			Size:      s.bucketSize,
			Filter:    gs.filter,
		}
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	if attempt == nil {
		return nil
	}

	if issue {
		s.metrics.issued()
		start := time.Now()
		fetched, fetchErr := s.fetcher.FetchBucket(attempt.lc.ctx, req)
		if err := s.exec(func() {
			s.applyFetch(gs, key, attempt, fetched, fetchErr, start)
		}); err != nil {
			return err
		}
		return attempt.err
	}

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// applyFetch installs a fetch result. The cancellation state is checked here,
// at apply time, because CancelBucket or Reset may have run while the fetch
// was suspended.
func (s *Store) applyFetch(gs *GridState, key string, attempt *loadAttempt, fetched []assets.Asset, fetchErr error, start time.Time) {
	b, ok := gs.index.lookup(key)
	if s.state != gs || !ok || b.attempt != attempt {
		s.metrics.record(start, func(m *LoadMetrics) { m.StaleDiscarded++ })
		s.logger.Debug().Str("bucket", key).Msg("discarding superseded bucket fetch")
		attempt.finish(nil)
		return
	}
	b.attempt = nil

	if attempt.lc.cancelled() || (fetchErr != nil && IsCancelled(fetchErr)) {
		b.state = Empty
		s.metrics.record(start, func(m *LoadMetrics) { m.FetchesCancelled++ })
		s.logger.Debug().Str("bucket", key).Msg("bucket fetch cancelled")
		attempt.finish(nil)
		return
	}

	if fetchErr != nil {
		b.state = Empty
		s.metrics.record(start, func(m *LoadMetrics) { m.FetchesFailed++ })
		s.logger.Warn().Err(fetchErr).Str("bucket", key).Msg("bucket fetch failed")
		attempt.finish(&FetchError{BucketKey: key, Err: fetchErr})
		return
	}

	if dropped := gs.replaceAssets(b, fetched); len(dropped) > 0 {
		s.logger.Warn().
			Str("bucket", key).
			Strs("asset_ids", dropped).
			Msg("dropping assets already owned by another bucket")
	}
	if len(b.Assets) > 0 {
		b.state = Loaded
		s.metrics.record(start, func(m *LoadMetrics) { m.FetchesLoaded++ })
	} else {
		b.state = Empty
		s.metrics.record(start, func(m *LoadMetrics) { m.FetchesEmpty++ })
	}
	s.refresh(gs)

	s.logger.Debug().
		Str("bucket", key).
		Int("assets", len(b.Assets)).
		Dur("took", time.Since(start)).
		Msg("bucket loaded")
	attempt.finish(nil)
}

// CancelBucket aborts the bucket's cancellation context and installs a fresh
// one, so the next RequestBucket starts a live fetch. A Loading bucket goes
// back to Empty immediately; its superseded fetch can no longer apply.
func (s *Store) CancelBucket(key string) error {
	var opErr error
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		s.cancelBucket(b)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Store) cancelBucket(b *TimeBucket) {
	b.lc.cancel()
	b.lc = newLoadContext(s.root)
	if b.attempt != nil {
		b.attempt.finish(nil)
		b.attempt = nil
	}
	if b.state == Loading {
		b.state = Empty
	}
}

// CancelAll cancels every bucket that is Loading.
func (s *Store) CancelAll() error {
	return s.exec(func() {
		for _, b := range s.state.buckets {
			if b.state == Loading {
				s.cancelBucket(b)
			}
		}
	})
}

// Prefetch requests several buckets with bounded concurrency and returns the
// joined failures.
func (s *Store) Prefetch(ctx context.Context, keys ...string) error {
	p := pool.New().WithMaxGoroutines(s.prefetchLimit).WithContext(ctx)
	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			return s.RequestBucket(ctx, key)
		})
	}
	return p.Wait()
}

// RecordMeasuredHeight replaces a bucket's estimated height with its
// measured one and applies the difference to the timeline height.
func (s *Store) RecordMeasuredHeight(key string, actualHeight float64) error {
	if actualHeight < 0 || math.IsNaN(actualHeight) || math.IsInf(actualHeight, 0) {
		return fmt.Errorf("measured height of bucket %s must be finite and not negative: %v", key, actualHeight)
	}
	var opErr error
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		delta := actualHeight - b.Height
		b.Height = actualHeight
		b.measured = true
		s.state.timelineHeight += delta
	}); err != nil {
		return err
	}
	return opErr
}

// UpdateViewport stores new viewport metrics and re-estimates every bucket
// whose height has not been measured yet.
func (s *Store) UpdateViewport(viewportHeight, viewportWidth float64) error {
	var opErr error
	if err := s.exec(func() {
		gs := s.state
		if !gs.initialized {
			opErr = ErrNotInitialized
			return
		}
		gs.viewportHeight = viewportHeight
		widthChanged := gs.viewportWidth != viewportWidth
		gs.viewportWidth = viewportWidth
		if !widthChanged {
			return
		}
		for _, b := range gs.buckets {
			if b.measured {
				continue
			}
			next := s.estimator(b.Count, viewportWidth)
			gs.timelineHeight += next - b.Height
			b.Height = next
		}
	}); err != nil {
		return err
	}
	return opErr
}

// RemoveItem removes an asset from its bucket. A bucket left without assets
// is removed from the sequence. Its height stays in the timeline height
// unless WithPrunedHeightDebit is set.
func (s *Store) RemoveItem(id string) error {
	var opErr error
	if err := s.exec(func() {
		gs := s.state
		b, pos, ok := gs.locate(id)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrAssetNotFound, id)
			return
		}

		remaining := make([]assets.Asset, 0, len(b.Assets)-1)
		remaining = append(remaining, b.Assets[:pos]...)
		remaining = append(remaining, b.Assets[pos+1:]...)
		b.Assets = remaining
		delete(gs.owners, id)
		if b.Count > 0 {
			b.Count--
		}
		s.selected.Remove(id)

		if len(b.Assets) == 0 {
			gs.removeBucket(b)
			if s.debitPruned {
				gs.timelineHeight -= b.Height
			}
			s.logger.Debug().
				Str("bucket", b.Key).
				Float64("height", b.Height).
				Bool("debited", s.debitPruned).
				Msg("pruned empty bucket")
		}
		s.refresh(gs)
	}); err != nil {
		return err
	}
	return opErr
}

// UpdateItemFlag sets the favorite flag of an asset in place.
func (s *Store) UpdateItemFlag(id string, isFavorite bool) error {
	var opErr error
	if err := s.exec(func() {
		gs := s.state
		b, pos, ok := gs.locate(id)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrAssetNotFound, id)
			return
		}
		b.Assets[pos].IsFavorite = isFavorite
		s.refresh(gs)
	}); err != nil {
		return err
	}
	return opErr
}

// Reset cancels every bucket context and replaces the state with an
// uninitialized one. Fetches still in flight can never apply afterwards.
func (s *Store) Reset() error {
	return s.exec(func() {
		s.discard(s.state)
		s.state = newGridState()
		s.selected.Clear()
		s.geoIdx = nil
		s.geoDirty = true
	})
}
