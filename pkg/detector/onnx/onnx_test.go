package onnx

import (
	"context"
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640))
	assert.Equal(t, 2100, anchorCount(320))
}

func TestNewMissingModel(t *testing.T) {
	_, err := New(Config{ModelPath: "does/not/exist.onnx"})
	assert.Error(t, err)
}

func TestDestroyEnvironmentWithoutSessions(t *testing.T) {
	assert.NoError(t, DestroyEnvironment())
}

func TestDetectWithModel(t *testing.T) {
	modelPath := os.Getenv("VISIONAID_TEST_MODEL")
	if modelPath == "" {
		t.Skip("VISIONAID_TEST_MODEL not set")
	}

	d, err := New(Config{ModelPath: modelPath, LibraryPath: os.Getenv("ORT_LIBRARY_PATH")})
	require.NoError(t, err)
	defer d.Close()

	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 320, 240)), 0.7)
	require.NoError(t, err)
	assert.Empty(t, dets, "a blank frame has no objects")
}
