package visionService

import (
	"VisionAid/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRescaler(t *testing.T) {
	in := []entity.Detection{det("a", 0.9, 10, 20, 30, 40)}

	out := NewRescaler(2, 0.5)(in)

	assert.Equal(t, entity.BBox{X: 20, Y: 10, Width: 60, Height: 20}, out[0].BBox)
	assert.Equal(t, entity.BBox{X: 10, Y: 20, Width: 30, Height: 40}, in[0].BBox)
}

func TestFiltersKeepOrder(t *testing.T) {
	in := []entity.Detection{
		det("a", 0.9, 0, 0, 100, 100),
		det("b", 0.5, 0, 0, 100, 100),
		det("c", 0.9, 0, 0, 10, 10),
		det("d", 0.7, 0, 0, 60, 50),
	}

	out := NewScoreFilter(0.7)(NewAreaFilter(3000)(in))

	var names []string
	for _, d := range out {
		names = append(names, d.ClassName)
	}
	assert.Equal(t, []string{"a", "d"}, names)
}

func TestWidthFilter(t *testing.T) {
	in := []entity.Detection{
		det("zero", 0.9, 0, 0, 0, 100),
		det("ok", 0.9, 0, 0, 1, 100),
	}

	out := NewWidthFilter()(in)

	assert.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].ClassName)
}

func TestNearestToCenterEmpty(t *testing.T) {
	_, ok := nearestToCenter(nil, 320, 240)
	assert.False(t, ok)
}
