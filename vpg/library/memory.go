package library

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

// MemoryLibrary is an in-memory Repository for tests and the dev server.
type MemoryLibrary struct {
	mu     sync.RWMutex
	assets map[string]assets.Asset
	albums map[string]map[string]struct{}
	people map[string]map[string]struct{}
}

func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{
		assets: make(map[string]assets.Asset),
		albums: make(map[string]map[string]struct{}),
		people: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryLibrary) Insert(_ context.Context, a assets.Asset) error {
	if a.ID == "" {
		return fmt.Errorf("insert asset: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assets[a.ID]; exists {
		return fmt.Errorf("asset %s already exists", a.ID)
	}
	m.assets[a.ID] = a
	return nil
}

func (m *MemoryLibrary) Get(_ context.Context, id string) (assets.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return assets.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

func (m *MemoryLibrary) Update(_ context.Context, a assets.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[a.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	m.assets[a.ID] = a
	return nil
}

func (m *MemoryLibrary) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.assets, id)
	for _, members := range m.albums {
		delete(members, id)
	}
	for _, members := range m.people {
		delete(members, id)
	}
	return nil
}

func (m *MemoryLibrary) SetFavorite(_ context.Context, id string, favorite bool) error {
	return m.modify(id, func(a *assets.Asset) { a.IsFavorite = favorite })
}

func (m *MemoryLibrary) SetThumbnail(_ context.Context, id, ref string) error {
	return m.modify(id, func(a *assets.Asset) { a.ThumbnailRef = ref })
}

func (m *MemoryLibrary) SetCapture(_ context.Context, id string, takenAt time.Time, loc *assets.Location) error {
	return m.modify(id, func(a *assets.Asset) {
		if !takenAt.IsZero() {
			a.TakenAt = takenAt.UTC()
		}
		if loc != nil {
			l := *loc
			a.Location = &l
		}
	})
}

// modify applies fn to the stored asset under the write lock.
func (m *MemoryLibrary) modify(id string, fn func(a *assets.Asset)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(&a)
	m.assets[id] = a
	return nil
}

func (m *MemoryLibrary) AddToAlbum(_ context.Context, albumID string, ids ...string) error {
	return m.link(m.albums, albumID, ids)
}

func (m *MemoryLibrary) TagPerson(_ context.Context, personID string, ids ...string) error {
	return m.link(m.people, personID, ids)
}

func (m *MemoryLibrary) link(groups map[string]map[string]struct{}, group string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.assets[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	members, ok := groups[group]
	if !ok {
		members = make(map[string]struct{})
		groups[group] = members
	}
	for _, id := range ids {
		members[id] = struct{}{}
	}
	return nil
}

// matching returns the assets passing filter. Caller holds the read lock.
func (m *MemoryLibrary) matching(filter assets.Filter) []assets.Asset {
	out := make([]assets.Asset, 0, len(m.assets))
	for id, a := range m.assets {
		if !filter.Matches(a) {
			continue
		}
		if filter.AlbumID != "" {
			if _, ok := m.albums[filter.AlbumID][id]; !ok {
				continue
			}
		}
		if filter.PersonID != "" {
			if _, ok := m.people[filter.PersonID][id]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func (m *MemoryLibrary) TimeBuckets(ctx context.Context, size assets.BucketSize, filter assets.Filter) ([]assets.BucketCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size = sizeOf(size)
	m.mu.RLock()
	counts := make(map[string]int)
	for _, a := range m.matching(filter) {
		counts[size.Key(a.TakenAt)]++
	}
	m.mu.RUnlock()

	layout := make([]assets.BucketCount, 0, len(counts))
	for key, n := range counts {
		layout = append(layout, assets.BucketCount{TimeBucket: key, Count: n})
	}
	sort.Slice(layout, func(i, j int) bool { return layout[i].TimeBucket > layout[j].TimeBucket })
	return layout, nil
}

// Page returns one page of a bucket's contents, newest first.
func (m *MemoryLibrary) Page(ctx context.Context, req grid.FetchRequest, page int) ([]assets.Asset, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	size := sizeOf(req.Size)
	m.mu.RLock()
	var items []assets.Asset
	for _, a := range m.matching(req.Filter) {
		if size.Key(a.TakenAt) == req.BucketKey {
			items = append(items, a)
		}
	}
	m.mu.RUnlock()
	sortNewestFirst(items)

	limit := pageSizeOf(req)
	start := page * limit
	if page < 0 || start >= len(items) {
		return nil, nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

// FetchBucket reads the bucket page by page until a short page.
func (m *MemoryLibrary) FetchBucket(ctx context.Context, req grid.FetchRequest) ([]assets.Asset, error) {
	limit := pageSizeOf(req)
	var out []assets.Asset
	for page := 0; ; page++ {
		batch, err := m.Page(ctx, req, page)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < limit {
			return out, nil
		}
	}
}

func (m *MemoryLibrary) Close() error { return nil }

var _ Repository = (*MemoryLibrary)(nil)
