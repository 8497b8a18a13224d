package estimator

import (
	"VisionAid/internal/entity"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDistance(t *testing.T) {
	t.Run("pinhole", func(t *testing.T) {
		d, err := EstimateDistance(100, 0.07, 1000)
		require.NoError(t, err)
		assert.InDelta(t, 0.7, d, 1e-9)
	})

	t.Run("halving width doubles distance", func(t *testing.T) {
		near, err := EstimateDistance(200, 0.5, 1000)
		require.NoError(t, err)
		far, err := EstimateDistance(100, 0.5, 1000)
		require.NoError(t, err)
		assert.InDelta(t, 2*near, far, 1e-9)
	})

	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := EstimateDistance(w, 0.07, 1000)
		assert.ErrorIs(t, err, ErrInvalidPixelWidth, "width %v", w)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		centerX float64
		want    entity.Direction
	}{
		{"left", 50, entity.DirectionLeft},
		{"ahead", 320, entity.DirectionAhead},
		{"right", 600, entity.DirectionRight},
		{"zero", 0, entity.DirectionLeft},
		{"just left of first boundary", 213.33, entity.DirectionLeft},
		{"first boundary", 640.0 / 3, entity.DirectionAhead},
		{"second boundary", 2 * (640.0 / 3), entity.DirectionAhead},
		{"just right of second boundary", 426.7, entity.DirectionRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.centerX, 640))
		})
	}
}

func TestRoundDistance(t *testing.T) {
	assert.Equal(t, 0.7, RoundDistance(0.7000000001))
	assert.Equal(t, 12.0, RoundDistance(11.96))
	assert.Equal(t, 0.0, RoundDistance(0.04))
}

// Exact halves round away from zero, not to the even neighbour.
func TestRoundDistanceHalves(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0.25, want: 0.3},
		{in: 0.75, want: 0.8},
		{in: 1.25, want: 1.3},
		{in: 2.25, want: 2.3},
		{in: 0.05, want: 0.1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundDistance(tt.in), "RoundDistance(%v)", tt.in)
	}
}
