package grid

import (
	"context"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

// LoadState is the lifecycle of a bucket's contents.
type LoadState int

const (
	// Empty buckets hold no items and have no fetch in flight.
	Empty LoadState = iota
	// Loading buckets have a fetch in flight bound to their current context.
	Loading
	// Loaded buckets hold at least one item.
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// loadContext is a single-use cancellation handle. Once cancelled it is never
// handed to another fetch; cancelBucket replaces it with a new one.
type loadContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newLoadContext(parent context.Context) *loadContext {
	ctx, cancel := context.WithCancel(parent)
	return &loadContext{ctx: ctx, cancel: cancel}
}

func (lc *loadContext) cancelled() bool {
	return lc.ctx.Err() != nil
}

// loadAttempt is one in-flight fetch. Callers that request a bucket while it
// is Loading wait on the same attempt.
type loadAttempt struct {
	lc       *loadContext
	done     chan struct{}
	err      error
	finished bool
}

func newLoadAttempt(lc *loadContext) *loadAttempt {
	return &loadAttempt{lc: lc, done: make(chan struct{})}
}

// finish releases waiters exactly once.
func (a *loadAttempt) finish(err error) {
	if a.finished {
		return
	}
	a.finished = true
	a.err = err
	close(a.done)
}

// TimeBucket is the unit of lazy loading.
type TimeBucket struct {
	Key    string
	Count  int
	Height float64
	Assets []assets.Asset

	state    LoadState
	measured bool
	lc       *loadContext
	attempt  *loadAttempt
}

// State returns the bucket's load state.
func (b *TimeBucket) State() LoadState { return b.state }

// BucketSnapshot is a read-only copy of a bucket.
type BucketSnapshot struct {
	Key      string
	Count    int
	Height   float64
	State    LoadState
	Measured bool
	Assets   []assets.Asset
}

func (b *TimeBucket) snapshot() BucketSnapshot {
	return BucketSnapshot{
		Key:      b.Key,
		Count:    b.Count,
		Height:   b.Height,
		State:    b.state,
		Measured: b.measured,
		Assets:   assets.CloneAll(b.Assets),
	}
}
