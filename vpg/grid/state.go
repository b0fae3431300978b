package grid

import (
	"fmt"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"

	"gonum.org/v1/gonum/floats"
)

// GridState is the aggregate behind a Store. It is only touched from the
// store's control goroutine.
type GridState struct {
	initialized    bool
	viewportHeight float64
	viewportWidth  float64
	timelineHeight float64
	filter         assets.Filter

	buckets []*TimeBucket
	index   *bucketIndex
	owners  map[string]*TimeBucket

	// items is rebuilt, never mutated in place, so readers may keep it.
	items []assets.Asset
}

func newGridState() *GridState {
	return &GridState{
		index:  newBucketIndex(),
		owners: make(map[string]*TimeBucket),
		items:  []assets.Asset{},
	}
}

// recomputeItems rebuilds items as the concatenation of bucket assets.
func (gs *GridState) recomputeItems() {
	total := 0
	for _, b := range gs.buckets {
		total += len(b.Assets)
	}
	items := make([]assets.Asset, 0, total)
	for _, b := range gs.buckets {
		items = append(items, b.Assets...)
	}
	gs.items = items
}

// replaceAssets installs a fetch result on b. Items already owned by
// another bucket, and repeats within the result, are dropped and returned.
func (gs *GridState) replaceAssets(b *TimeBucket, fetched []assets.Asset) (dropped []string) {
	for _, a := range b.Assets {
		if gs.owners[a.ID] == b {
			delete(gs.owners, a.ID)
		}
	}

	kept := make([]assets.Asset, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, a := range fetched {
		if _, dup := seen[a.ID]; dup {
			dropped = append(dropped, a.ID)
			continue
		}
		if owner, ok := gs.owners[a.ID]; ok && owner != b {
			dropped = append(dropped, a.ID)
			continue
		}
		seen[a.ID] = struct{}{}
		gs.owners[a.ID] = b
		kept = append(kept, a.Clone())
	}
	b.Assets = kept
	return dropped
}

// locate finds the owning bucket of an asset and the asset's position in it.
func (gs *GridState) locate(id string) (*TimeBucket, int, bool) {
	b, ok := gs.owners[id]
	if !ok {
		return nil, -1, false
	}
	for i := range b.Assets {
		if b.Assets[i].ID == id {
			return b, i, true
		}
	}
	return nil, -1, false
}

func (gs *GridState) bucketPosition(b *TimeBucket) int {
	for i, candidate := range gs.buckets {
		if candidate == b {
			return i
		}
	}
	return -1
}

// removeBucket drops b from the sequence and the index. Its height is left in
// timelineHeight; callers decide whether to debit it.
func (gs *GridState) removeBucket(b *TimeBucket) {
	pos := gs.bucketPosition(b)
	if pos < 0 {
		return
	}
	gs.buckets = append(gs.buckets[:pos:pos], gs.buckets[pos+1:]...)
	gs.index.remove(b.Key)
	for _, a := range b.Assets {
		if gs.owners[a.ID] == b {
			delete(gs.owners, a.ID)
		}
	}
	b.lc.cancel()
}

// heightSum is Σ bucket heights computed from scratch.
func (gs *GridState) heightSum() float64 {
	heights := make([]float64, len(gs.buckets))
	for i, b := range gs.buckets {
		heights[i] = b.Height
	}
	return floats.Sum(heights)
}

// Invariants is the outcome of an audit of the state.
type Invariants struct {
	// HeightDrift is timelineHeight minus the summed bucket heights.
	HeightDrift float64
	Violations  []string
}

// OK reports whether the audit found no structural violations. Height drift
// from pruned buckets is reported separately and is not a violation.
func (inv Invariants) OK() bool { return len(inv.Violations) == 0 }

func (gs *GridState) audit() Invariants {
	var inv Invariants
	inv.HeightDrift = gs.timelineHeight - gs.heightSum()

	seenKeys := make(map[string]bool, len(gs.buckets))
	seenIDs := make(map[string]string)
	flatLen := 0
	for _, b := range gs.buckets {
		if seenKeys[b.Key] {
			inv.Violations = append(inv.Violations, fmt.Sprintf("duplicate bucket key %s", b.Key))
		}
		seenKeys[b.Key] = true
		for _, a := range b.Assets {
			if other, ok := seenIDs[a.ID]; ok {
				inv.Violations = append(inv.Violations, fmt.Sprintf("asset %s in buckets %s and %s", a.ID, other, b.Key))
			}
			seenIDs[a.ID] = b.Key
		}
		flatLen += len(b.Assets)
	}
	if gs.index.len() != len(gs.buckets) {
		inv.Violations = append(inv.Violations, fmt.Sprintf("index holds %d buckets, sequence holds %d", gs.index.len(), len(gs.buckets)))
	}

	if flatLen != len(gs.items) {
		inv.Violations = append(inv.Violations, fmt.Sprintf("flattened list has %d items, buckets hold %d", len(gs.items), flatLen))
		return inv
	}
	i := 0
	for _, b := range gs.buckets {
		for _, a := range b.Assets {
			if gs.items[i].ID != a.ID || gs.items[i].IsFavorite != a.IsFavorite {
				inv.Violations = append(inv.Violations, fmt.Sprintf("flattened list diverges at %d", i))
				return inv
			}
			i++
		}
	}
	return inv
}
