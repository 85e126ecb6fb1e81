package termdict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelDebug).WithSegment("seg-1", "id-1").WithField("title").WithCount(3)
	l.LogSeek(context.Background(), "title", []byte("apple"), true, nil)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "seek completed", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "seg-1", rec["segment"])
	assert.Equal(t, "id-1", rec["segment_id"])
	assert.Equal(t, "apple", rec["term"])
	assert.Equal(t, true, rec["found"])
	assert.EqualValues(t, 3, rec["count"])
}

func TestLogger_Errors(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelError)
	ctx := context.Background()
	boom := errors.New("boom")

	l.LogBuild(ctx, 1, 10, nil)
	l.LogSeek(ctx, "f", []byte("x"), false, nil)
	assert.Zero(t, buf.Len())

	l.LogFlush(ctx, 100, boom)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "flush failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.LogOpen(context.Background(), 0, errors.New("ignored"))
}
