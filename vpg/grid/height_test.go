package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeightEstimator(t *testing.T) {
	estimate := NewHeightEstimator(200, 1.5, 1)

	tests := []struct {
		name  string
		count int
		width float64
		want  float64
	}{
		{"no items", 0, 1000, 0},
		{"negative count", -3, 1000, 0},
		{"single row", 3, 1000, 200},
		{"exactly one full row", 10, 3000, 200},
		{"spills into second row", 11, 3000, 400},
		{"zero width stacks items", 4, 0, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimate(tt.count, tt.width))
		})
	}
}

func TestHeightEstimatorIsDeterministic(t *testing.T) {
	estimate := NewHeightEstimator(235, 1.5, 0.7)
	for i := 0; i < 50; i++ {
		assert.Equal(t, estimate(i, 1280), estimate(i, 1280))
	}
	assert.LessOrEqual(t, estimate(10, 1280), estimate(100, 1280))
}

func TestHeightEstimatorRowFill(t *testing.T) {
	full := NewHeightEstimator(100, 1, 1)
	partial := NewHeightEstimator(100, 1, 0.5)
	// 10 items of 100px in a 1000px row fit one full row, or two half-filled rows.
	assert.Equal(t, 100.0, full(10, 1000))
	assert.Equal(t, 200.0, partial(10, 1000))
}
