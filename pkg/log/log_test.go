package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureStandard(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	std := logrus.StandardLogger()
	prev := std.Out
	std.SetOutput(&buf)
	t.Cleanup(func() { std.SetOutput(prev) })
	return &buf
}

func TestErrorWithTraceIDPrefersExistingIDs(t *testing.T) {
	captureStandard(t)

	assert.Equal(t, "req-1", ErrorWithTraceID(Fields{RequestIDKey: "req-1"}, "boom"))
	assert.Equal(t, "sess-1", ErrorWithTraceID(Fields{SessionIDKey: "sess-1"}, "boom"))
}

func TestErrorWithTraceIDGeneratesUUID(t *testing.T) {
	buf := captureStandard(t)

	traceID := ErrorWithTraceID(nil, "boom")

	_, err := uuid.Parse(traceID)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), traceID)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLevel(""))
	assert.Equal(t, logrus.WarnLevel, parseLevel("warn"))
	assert.Equal(t, logrus.DebugLevel, parseLevel("loud"))
}

func TestWithRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")

	assert.Equal(t, "abc", WithRequestID(ctx).Data["request_id"])
	assert.Equal(t, "unknown", WithRequestID(context.Background()).Data["request_id"])
}
