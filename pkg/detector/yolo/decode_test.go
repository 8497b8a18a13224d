package yolo

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anchor struct {
	cx, cy, w, h float32
	scores       []float32
}

func tensor(anchors []anchor, numClasses int) []float32 {
	n := len(anchors)
	out := make([]float32, (4+numClasses)*n)
	for i, a := range anchors {
		out[i] = a.cx
		out[n+i] = a.cy
		out[2*n+i] = a.w
		out[3*n+i] = a.h
		for c, s := range a.scores {
			out[(4+c)*n+i] = s
		}
	}
	return out
}

func TestDecode(t *testing.T) {
	labels := []string{"person", "cup"}

	t.Run("threshold and best class", func(t *testing.T) {
		out := tensor([]anchor{
			{cx: 100, cy: 100, w: 40, h: 20, scores: []float32{0.1, 0.9}},
			{cx: 300, cy: 300, w: 10, h: 10, scores: []float32{0.3, 0.2}},
		}, 2)

		dets, err := Decode(out, 2, Options{Labels: labels, ConfThreshold: 0.5})
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, "cup", dets[0].ClassName)
		assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
		assert.Equal(t, entity.BBox{X: 80, Y: 90, Width: 40, Height: 20}, dets[0].BBox)
	})

	t.Run("scaled to frame", func(t *testing.T) {
		out := tensor([]anchor{{cx: 320, cy: 320, w: 64, h: 64, scores: []float32{0.8, 0}}}, 2)

		dets, err := Decode(out, 1, Options{Labels: labels, ConfThreshold: 0.5, ScaleX: 0.5, ScaleY: 0.375})
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.InDelta(t, 144, dets[0].BBox.X, 1e-9)
		assert.InDelta(t, 108, dets[0].BBox.Y, 1e-9)
		assert.InDelta(t, 32, dets[0].BBox.Width, 1e-9)
		assert.InDelta(t, 24, dets[0].BBox.Height, 1e-9)
	})

	t.Run("wrong size", func(t *testing.T) {
		_, err := Decode(make([]float32, 10), 2, Options{Labels: labels})
		assert.ErrorIs(t, err, detector.ErrMalformedOutput)
	})
}

func TestNMS(t *testing.T) {
	dets := []entity.Detection{
		{ClassName: "cup", Confidence: 0.7, BBox: entity.BBox{X: 0, Y: 0, Width: 100, Height: 100}},
		{ClassName: "cup", Confidence: 0.9, BBox: entity.BBox{X: 5, Y: 5, Width: 100, Height: 100}},
		{ClassName: "person", Confidence: 0.8, BBox: entity.BBox{X: 0, Y: 0, Width: 100, Height: 100}},
		{ClassName: "cup", Confidence: 0.6, BBox: entity.BBox{X: 300, Y: 300, Width: 50, Height: 50}},
	}

	kept := NMS(dets, 0.7)
	require.Len(t, kept, 3)
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, "person", kept[1].ClassName, "other classes are never suppressed")
	assert.Equal(t, 0.6, kept[2].Confidence)
}

func TestIoU(t *testing.T) {
	a := entity.BBox{X: 0, Y: 0, Width: 10, Height: 10}
	assert.Equal(t, 1.0, IoU(a, a))
	assert.Equal(t, 0.0, IoU(a, entity.BBox{X: 20, Y: 20, Width: 5, Height: 5}))
	assert.InDelta(t, 25.0/175.0, IoU(a, entity.BBox{X: 5, Y: 5, Width: 10, Height: 10}), 1e-9)
}

func TestPreprocess(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	buf := make([]float32, 3*4*4)
	require.NoError(t, Preprocess(img, 4, 4, buf))
	assert.InDelta(t, 1.0, buf[0], 1e-6)
	assert.InDelta(t, 0.0, buf[16], 1e-6)
	assert.InDelta(t, 0.2, buf[32], 1e-6)

	assert.Error(t, Preprocess(img, 4, 4, make([]float32, 10)))

	sx, sy := Scale(image.NewRGBA(image.Rect(0, 0, 320, 240)), 640, 640)
	assert.Equal(t, 0.5, sx)
	assert.Equal(t, 0.375, sy)
}
