package main

import (
	"VisionAid/internal/api/vision"
	"VisionAid/internal/entity"
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "nothing detected", describe(vision.EmptyResponse()))

	resp := vision.NewFrameResponse(&entity.FrameResult{
		Class:     "mobile",
		Distance:  0.7,
		Direction: entity.DirectionLeft,
	})
	assert.Equal(t, "mobile, 0.7 m, to your left", describe(resp))
}

func TestLoadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, imaging.Save(image.NewNRGBA(image.Rect(0, 0, 8, 8)), path))

	payload, err := loadPayload(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "data:image/jpeg;base64,"))

	_, err = loadPayload(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	textPath := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("hello"), 0o600))
	_, err = loadPayload(textPath)
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; ; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			// answer the first frame only, like a throttled session
			if i == 0 {
				_ = conn.WriteMessage(websocket.TextMessage,
					[]byte(`{"predictions":[{"class":"cards","confidence":0.9,"distance":1.5,"direction":"right","bbox":[1,2,3,4]}]}`))
			}
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := probe(context.Background(), probeConfig{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		Payload:  "data:image/jpeg;base64,AAAA",
		Count:    3,
		Interval: time.Millisecond,
		Timeout:  100 * time.Millisecond,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "frame 1: cards, 1.5 m, to your right\nframe 2: no reply (throttled)\n", out.String())
}
