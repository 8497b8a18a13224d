package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrEmptyPayload  = errors.New("empty image payload")
	ErrInvalidBase64 = errors.New("invalid base64 image payload")
	ErrInvalidImage  = errors.New("unsupported or corrupt image")
)

const defaultJPEGQuality = 85

// StripDataURL drops everything up to and including the first comma of a
// data URL such as "data:image/jpeg;base64,....". A payload without a comma
// is returned unchanged.
func StripDataURL(payload string) string {
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		return payload[idx+1:]
	}
	return payload
}

// DecodeDataURL decodes a data URL or bare base64 string into an image.
func DecodeDataURL(payload string) (image.Image, error) {
	encoded := strings.TrimSpace(StripDataURL(payload))
	if encoded == "" {
		return nil, ErrEmptyPayload
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}

	return Decode(raw)
}

func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Resize stretches img to exactly width x height.
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Linear)
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(defaultJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes img as a JPEG data URL, the format browsers send
// from canvas.toDataURL.
func EncodeDataURL(img image.Image) (string, error) {
	raw, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
