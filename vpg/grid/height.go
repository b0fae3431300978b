package grid

import "math"

// HeightEstimator guesses the rendered height of a bucket from its item count
// and the viewport width. It must be pure.
type HeightEstimator func(itemCount int, viewportWidth float64) float64

// NewHeightEstimator returns an estimator that lays items out in rows of
// thumbnailHeight, assuming each item is aspectRatio times as wide as it is
// tall and rows are filled to rowFill of their width on average.
func NewHeightEstimator(thumbnailHeight, aspectRatio, rowFill float64) HeightEstimator {
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	if rowFill <= 0 || rowFill > 1 {
		rowFill = 1
	}
	return func(itemCount int, viewportWidth float64) float64 {
		if itemCount <= 0 {
			return 0
		}
		if viewportWidth <= 0 {
			return float64(itemCount) * thumbnailHeight
		}
		unwrapped := float64(itemCount) * thumbnailHeight * aspectRatio
		rows := math.Ceil(unwrapped / (viewportWidth * rowFill))
		return rows * thumbnailHeight
	}
}
