package grid

import (
	"fmt"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/geo"
)

// Snapshot is a consistent copy of the whole state.
type Snapshot struct {
	Initialized    bool
	ViewportHeight float64
	ViewportWidth  float64
	TimelineHeight float64
	Filter         assets.Filter
	Buckets        []BucketSnapshot
	Items          []assets.Asset
}

// Items returns the flattened asset list. The slice is shared and must be
// treated as read-only; the store builds a new one on every change.
func (s *Store) Items() []assets.Asset {
	var items []assets.Asset
	if err := s.exec(func() { items = s.state.items }); err != nil {
		return nil
	}
	return items
}

// TimelineHeight returns the maintained sum of bucket heights.
func (s *Store) TimelineHeight() float64 {
	var h float64
	_ = s.exec(func() { h = s.state.timelineHeight })
	return h
}

func (s *Store) Initialized() bool {
	var ok bool
	_ = s.exec(func() { ok = s.state.initialized })
	return ok
}

// Viewport returns the last known viewport height and width.
func (s *Store) Viewport() (height, width float64) {
	_ = s.exec(func() {
		height, width = s.state.viewportHeight, s.state.viewportWidth
	})
	return height, width
}

// Buckets returns copies of every bucket in order.
func (s *Store) Buckets() []BucketSnapshot {
	var out []BucketSnapshot
	_ = s.exec(func() {
		out = make([]BucketSnapshot, len(s.state.buckets))
		for i, b := range s.state.buckets {
			out[i] = b.snapshot()
		}
	})
	return out
}

// Bucket returns a copy of one bucket.
func (s *Store) Bucket(key string) (BucketSnapshot, error) {
	var (
		out   BucketSnapshot
		opErr error
	)
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		out = b.snapshot()
	}); err != nil {
		return BucketSnapshot{}, err
	}
	return out, opErr
}

// BucketsWithPrefix returns the keys starting with prefix, e.g. every month
// of "2024", in bucket order.
func (s *Store) BucketsWithPrefix(prefix string) []string {
	var keys []string
	_ = s.exec(func() {
		matched := make(map[string]bool)
		for _, k := range s.state.index.withPrefix(prefix) {
			matched[k] = true
		}
		for _, b := range s.state.buckets {
			if matched[b.Key] {
				keys = append(keys, b.Key)
			}
		}
	})
	return keys
}

// AssetOwner returns the key of the bucket holding the asset.
func (s *Store) AssetOwner(id string) (string, bool) {
	var (
		key string
		ok  bool
	)
	_ = s.exec(func() {
		if b, found := s.state.owners[id]; found {
			key, ok = b.Key, true
		}
	})
	return key, ok
}

func (s *Store) Snapshot() Snapshot {
	var snap Snapshot
	_ = s.exec(func() {
		gs := s.state
		snap = Snapshot{
			Initialized:    gs.initialized,
			ViewportHeight: gs.viewportHeight,
			ViewportWidth:  gs.viewportWidth,
			TimelineHeight: gs.timelineHeight,
			Filter:         gs.filter,
			Buckets:        make([]BucketSnapshot, len(gs.buckets)),
			Items:          assets.CloneAll(gs.items),
		}
		for i, b := range gs.buckets {
			snap.Buckets[i] = b.snapshot()
		}
	})
	return snap
}

// VerifyInvariants audits the state from scratch.
func (s *Store) VerifyInvariants() (Invariants, error) {
	var inv Invariants
	if err := s.exec(func() { inv = s.state.audit() }); err != nil {
		return Invariants{}, err
	}
	if !inv.OK() {
		s.logger.Error().Strs("violations", inv.Violations).Msg("grid invariants violated")
	}
	return inv, nil
}

// Metrics returns the fetch outcome counters.
func (s *Store) Metrics() LoadMetrics {
	return s.metrics.get()
}

// SelectAsset adds loaded assets to the selection.
func (s *Store) SelectAsset(ids ...string) error {
	var opErr error
	if err := s.exec(func() {
		for _, id := range ids {
			if _, ok := s.state.owners[id]; !ok {
				opErr = fmt.Errorf("%w: %s", ErrAssetNotFound, id)
				return
			}
		}
		s.selected.Add(ids...)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Store) DeselectAsset(ids ...string) error {
	return s.exec(func() { s.selected.Remove(ids...) })
}

// SelectBucket selects every loaded asset of a bucket.
func (s *Store) SelectBucket(key string) error {
	var opErr error
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		for _, a := range b.Assets {
			s.selected.Add(a.ID)
		}
	}); err != nil {
		return err
	}
	return opErr
}

// SelectedInBucket returns the selected assets of one bucket.
func (s *Store) SelectedInBucket(key string) ([]string, error) {
	var (
		out   []string
		opErr error
	)
	if err := s.exec(func() {
		b, err := s.lookupBucket(key)
		if err != nil {
			opErr = err
			return
		}
		ids := make([]string, len(b.Assets))
		for i, a := range b.Assets {
			ids[i] = a.ID
		}
		out = s.selected.Intersect(ids)
	}); err != nil {
		return nil, err
	}
	return out, opErr
}

func (s *Store) ClearSelection() error {
	return s.exec(func() { s.selected.Clear() })
}

// SelectedIDs returns the selection in the order assets were selected.
func (s *Store) SelectedIDs() []string {
	var ids []string
	_ = s.exec(func() { ids = s.selected.IDs() })
	return ids
}

func (s *Store) IsSelected(id string) bool {
	var ok bool
	_ = s.exec(func() { ok = s.selected.Contains(id) })
	return ok
}

func (s *Store) SelectionCount() int {
	var n int
	_ = s.exec(func() { n = s.selected.Len() })
	return n
}

func (s *Store) geoIndex() *geo.Index {
	if s.geoDirty || s.geoIdx == nil {
		s.geoIdx = geo.Build(s.state.items)
		s.geoDirty = false
	}
	return s.geoIdx
}

// NearbyAssets returns up to k loaded assets closest to the coordinate.
func (s *Store) NearbyAssets(lat, lon float64, k int) []assets.Asset {
	var out []assets.Asset
	_ = s.exec(func() { out = s.geoIndex().Nearest(lat, lon, k) })
	return out
}

// AssetsWithin returns loaded assets within radius degrees of the coordinate.
func (s *Store) AssetsWithin(lat, lon, radius float64) []assets.Asset {
	var out []assets.Asset
	_ = s.exec(func() { out = s.geoIndex().Within(lat, lon, radius) })
	return out
}
