package remote

import (
	"VisionAid/pkg/detector"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	var got detector.WireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detector.WireResponse{Detections: []detector.WireDetection{
			{Class: "cup", Confidence: 0.91, BBox: []float64{10, 10, 50, 90}},
		}})
	}))
	defer srv.Close()

	d, err := New(srv.URL+"/", time.Second)
	require.NoError(t, err)

	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 320, 240)), 0.7)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "cup", dets[0].ClassName)
	assert.Equal(t, 40.0, dets[0].BBox.Width)
	assert.Equal(t, 80.0, dets[0].BBox.Height)

	assert.Equal(t, 320, got.Width)
	assert.Equal(t, 240, got.Height)
	assert.Equal(t, 0.7, got.Confidence)
	assert.NotEmpty(t, got.Image)
}

func TestDetectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"cuda out of memory"}`))
	}))
	defer srv.Close()

	d, err := New(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), 0.7)
	assert.ErrorIs(t, err, detector.ErrDetectionFailed)
	assert.Contains(t, err.Error(), "cuda out of memory")
}

func TestDetectTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d, err := New(srv.URL, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = d.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8)), 0.7)
	assert.ErrorIs(t, err, detector.ErrDetectionFailed)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("", time.Second)
	assert.Error(t, err)
}
