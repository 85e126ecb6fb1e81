package resource

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_BuildSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentBuilds: 2})
	assert.Equal(t, 2, c.MaxConcurrentBuilds())

	require.NoError(t, c.AcquireBuild(t.Context()))
	require.NoError(t, c.AcquireBuild(t.Context()))
	assert.False(t, c.TryAcquireBuild())

	c.ReleaseBuild()
	assert.True(t, c.TryAcquireBuild())
}

func TestController_BuildSlotCancelled(t *testing.T) {
	c := NewController(Config{MaxConcurrentBuilds: 1})
	require.NoError(t, c.AcquireBuild(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, c.AcquireBuild(ctx), context.Canceled)
}

func TestController_NilIsNoop(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(1<<40))
	assert.True(t, c.TryAcquireMemory(1))
	c.ReleaseMemory(1)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireBuild(t.Context()))
	c.ReleaseBuild()
	require.NoError(t, c.WaitWrite(t.Context(), 1<<20))
}

func TestRateLimitedWriter(t *testing.T) {
	// Burst covers the whole payload, so nothing waits.
	c := NewController(Config{WriteBytesPerSec: 1 << 20})
	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", buf.String())
}
