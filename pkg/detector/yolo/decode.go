// Package yolo decodes raw YOLOv8 output tensors. The model emits a
// [1, 4+numClasses, numAnchors] tensor in channel-major order: for anchor i
// the box is (cx, cy, w, h) at output[0..3][i] and class scores follow.
package yolo

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

const (
	DefaultInputSize    = 640
	DefaultIoUThreshold = 0.7
)

type Options struct {
	Labels        []string
	ConfThreshold float64
	IoUThreshold  float64
	// ScaleX and ScaleY map model input pixels back to frame pixels.
	ScaleX float64
	ScaleY float64
}

// Decode converts a flattened output tensor into detections in frame pixel
// space, after per-class non-maximum suppression.
func Decode(output []float32, numAnchors int, opts Options) ([]entity.Detection, error) {
	numClasses := len(opts.Labels)
	if numAnchors <= 0 || numClasses == 0 {
		return nil, fmt.Errorf("%w: %d anchors, %d classes", detector.ErrMalformedOutput, numAnchors, numClasses)
	}
	if want := (4 + numClasses) * numAnchors; len(output) != want {
		return nil, fmt.Errorf("%w: got %d values, want %d", detector.ErrMalformedOutput, len(output), want)
	}

	scaleX, scaleY := opts.ScaleX, opts.ScaleY
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}

	candidates := make([]entity.Detection, 0, 64)
	for i := 0; i < numAnchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			score := output[(4+c)*numAnchors+i]
			if score > bestScore {
				bestClass, bestScore = c, score
			}
		}
		if bestClass < 0 || float64(bestScore) < opts.ConfThreshold {
			continue
		}

		cx := float64(output[i])
		cy := float64(output[numAnchors+i])
		w := float64(output[2*numAnchors+i])
		h := float64(output[3*numAnchors+i])

		candidates = append(candidates, entity.Detection{
			ClassName:  opts.Labels[bestClass],
			Confidence: float64(bestScore),
			BBox: entity.BBox{
				X:      (cx - w/2) * scaleX,
				Y:      (cy - h/2) * scaleY,
				Width:  w * scaleX,
				Height: h * scaleY,
			},
		})
	}

	iou := opts.IoUThreshold
	if iou <= 0 {
		iou = DefaultIoUThreshold
	}
	return NMS(candidates, iou), nil
}

// NMS keeps the highest-confidence box of every overlapping group of the
// same class. The result is ordered by descending confidence.
func NMS(detections []entity.Detection, iouThreshold float64) []entity.Detection {
	sorted := make([]entity.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassName != sorted[i].ClassName {
				continue
			}
			if IoU(sorted[i].BBox, sorted[j].BBox) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func IoU(a, b entity.BBox) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	inter := max(0, x2-x1) * max(0, y2-y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Preprocess stretches frame to width x height and writes it into dst as
// planar RGB scaled to [0, 1]. dst must hold 3*width*height values.
func Preprocess(frame image.Image, width, height int, dst []float32) error {
	channelSize := width * height
	if len(dst) < 3*channelSize {
		return fmt.Errorf("input buffer holds %d values, need %d", len(dst), 3*channelSize)
	}

	resized := imaging.Resize(frame, width, height, imaging.Linear)
	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride:]
		offset := y * width
		for x := 0; x < width; x++ {
			i := offset + x
			p := row[x*4:]
			dst[i] = float32(p[0]) / 255.0
			dst[channelSize+i] = float32(p[1]) / 255.0
			dst[2*channelSize+i] = float32(p[2]) / 255.0
		}
	}
	return nil
}

// Scale returns the factors mapping model input pixels back onto frame.
func Scale(frame image.Image, inputWidth, inputHeight int) (float64, float64) {
	b := frame.Bounds()
	return float64(b.Dx()) / float64(inputWidth), float64(b.Dy()) / float64(inputHeight)
}
