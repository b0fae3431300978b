// Package selection tracks multi-selected assets as a roaring bitmap over
// densely interned asset IDs.
package selection

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// Set is a set of selected asset IDs. It is not safe for concurrent use;
// the grid store only touches it from its control goroutine.
type Set struct {
	ids    map[string]uint32
	names  []string
	bitmap *roaring.Bitmap
}

func New() *Set {
	return &Set{
		ids:    make(map[string]uint32),
		bitmap: roaring.New(),
	}
}

// intern assigns IDs in first-seen order so iteration follows selection order.
func (s *Set) intern(id string) uint32 {
	if n, ok := s.ids[id]; ok {
		return n
	}
	n := uint32(len(s.names))
	s.ids[id] = n
	s.names = append(s.names, id)
	return n
}

func (s *Set) Add(ids ...string) {
	for _, id := range ids {
		s.bitmap.Add(s.intern(id))
	}
}

func (s *Set) Remove(ids ...string) {
	for _, id := range ids {
		if n, ok := s.ids[id]; ok {
			s.bitmap.Remove(n)
		}
	}
}

func (s *Set) Contains(id string) bool {
	n, ok := s.ids[id]
	return ok && s.bitmap.Contains(n)
}

func (s *Set) Len() int {
	return int(s.bitmap.GetCardinality())
}

// IDs returns the selected IDs in the order they were first selected.
func (s *Set) IDs() []string {
	out := make([]string, 0, s.bitmap.GetCardinality())
	it := s.bitmap.Iterator()
	for it.HasNext() {
		out = append(out, s.names[it.Next()])
	}
	return out
}

// Intersect returns which of ids are selected, in selection order.
func (s *Set) Intersect(ids []string) []string {
	candidates := roaring.New()
	for _, id := range ids {
		if n, ok := s.ids[id]; ok {
			candidates.Add(n)
		}
	}
	candidates.And(s.bitmap)

	out := make([]string, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		out = append(out, s.names[it.Next()])
	}
	return out
}

// Clear drops the selection and the interned IDs.
func (s *Set) Clear() {
	s.ids = make(map[string]uint32)
	s.names = nil
	s.bitmap.Clear()
}
