package geo

import (
	"math"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// assetPoint places an asset at (lat, lon) for the kd-tree.
type assetPoint struct {
	asset  assets.Asset
	coords kdtree.Point
}

func newAssetPoint(a assets.Asset) assetPoint {
	return assetPoint{
		asset:  a,
		coords: kdtree.Point{a.Location.Latitude, a.Location.Longitude},
	}
}

// Compare performs axis comparisons for the kd-tree.
func (p assetPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coords[d] - c.(assetPoint).coords[d]
}

func (p assetPoint) Dims() int { return len(p.coords) }

// Distance is the squared planar distance in degrees.
func (p assetPoint) Distance(c kdtree.Comparable) float64 {
	other, ok := c.(assetPoint)
	if !ok {
		return math.Inf(1)
	}
	dist := 0.0
	for i := range p.coords {
		delta := p.coords[i] - other.coords[i]
		dist += delta * delta
	}
	return dist
}

type assetPoints []assetPoint

func (p assetPoints) Index(i int) kdtree.Comparable       { return p[i] }
func (p assetPoints) Len() int                            { return len(p) }
func (p assetPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p assetPoints) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane sorts points along one dimension for pivot selection.
type plane struct {
	points assetPoints
	dim    kdtree.Dim
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].coords[p.dim] < p.points[j].coords[p.dim]
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}
