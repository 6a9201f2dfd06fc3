package vertex_buffer_test

import (
	"testing"

	vb "github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer/buffertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFreeUnused(t *testing.T) {
	dev := buffertest.NewDevice()
	reg := vb.NewRegistry(nil)
	stale := vb.NewVertexBuffer[point](dev, 4, vb.WithRegistry(reg))
	fresh := vb.NewVertexBuffer[point](dev, 4, vb.WithRegistry(reg))
	idle := vb.NewVertexBuffer[point](dev, 4, vb.WithRegistry(reg))
	stale.SetVertex(0, point{1, 1})

	dev.Frame = 10
	require.NoError(t, stale.Bind())
	dev.Frame = 100
	require.NoError(t, fresh.Bind())
	assert.Equal(t, 2, reg.Len(), "only buffers holding GPU memory are tracked")
	assert.False(t, idle.InUse())

	assert.Zero(t, reg.FreeUnused(110, 100), "a gap of exactly maxIdleFrames is tolerated")
	assert.Equal(t, 1, reg.FreeUnused(111, 100))

	assert.False(t, stale.InUse())
	assert.True(t, fresh.InUse())
	assert.Equal(t, 1, reg.Len())

	dev.Reset()
	dev.Frame = 120
	require.NoError(t, stale.DrawRange(0, 1))
	assert.Equal(t, 8, dev.BytesWritten(), "a reclaimed buffer re-uploads its staged data")
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryForgetsFreedBuffers(t *testing.T) {
	dev := buffertest.NewDevice()
	reg := vb.NewRegistry(nil)
	buf := vb.NewVertexBuffer[point](dev, 4, vb.WithRegistry(reg))
	require.NoError(t, buf.Bind())

	buf.Dispose()

	assert.Zero(t, reg.Len())
	assert.Zero(t, reg.FreeUnused(1000, 0))
}
