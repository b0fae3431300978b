// Package geo answers location queries over the assets currently loaded in a
// timeline.
package geo

import (
	"sort"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index is an immutable kd-tree of located assets.
type Index struct {
	tree *kdtree.Tree
	size int
}

// Build indexes every asset that carries a location.
func Build(items []assets.Asset) *Index {
	pts := make(assetPoints, 0, len(items))
	for _, a := range items {
		if a.Location == nil {
			continue
		}
		pts = append(pts, newAssetPoint(a))
	}
	if len(pts) == 0 {
		return &Index{}
	}
	return &Index{tree: kdtree.New(pts, false), size: len(pts)}
}

// Len returns the number of located assets.
func (idx *Index) Len() int { return idx.size }

// Nearest returns up to k assets closest to (lat, lon), nearest first.
func (idx *Index) Nearest(lat, lon float64, k int) []assets.Asset {
	if idx.tree == nil || k <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keeper, queryPoint(lat, lon))
	return collect(keeper.Heap)
}

// Within returns the assets no further than radius degrees from (lat, lon),
// nearest first.
func (idx *Index) Within(lat, lon, radius float64) []assets.Asset {
	if idx.tree == nil || radius < 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radius * radius) // squared distance
	idx.tree.NearestSet(keeper, queryPoint(lat, lon))
	return collect(keeper.Heap)
}

func queryPoint(lat, lon float64) assetPoint {
	return assetPoint{coords: kdtree.Point{lat, lon}}
}

func collect(heap kdtree.Heap) []assets.Asset {
	found := make([]kdtree.ComparableDist, 0, len(heap))
	for _, item := range heap {
		// keepers seed their heap with a nil sentinel
		if item.Comparable == nil {
			continue
		}
		found = append(found, item)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })

	out := make([]assets.Asset, len(found))
	for i, item := range found {
		out[i] = item.Comparable.(assetPoint).asset
	}
	return out
}
