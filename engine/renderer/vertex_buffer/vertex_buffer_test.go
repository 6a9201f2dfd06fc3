package vertex_buffer_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/common"
	vb "github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer/buffertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVertexBuffer(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 16, vb.WithLabel("points"))

	assert.Equal(t, 16, buf.Size())
	assert.Equal(t, 8, buf.Stride())
	assert.Equal(t, "points", buf.Label())
	assert.Equal(t, -1, buf.LastWrittenIndex())
	assert.False(t, buf.InUse())
	assert.Zero(t, buf.LastUseFrame())
	assert.IsType(t, vb.LinearTopology{}, buf.Topology())
	assert.Empty(t, dev.Buffers, "construction must not allocate GPU memory")
}

func TestNewVertexBufferInvalid(t *testing.T) {
	dev := buffertest.NewDevice()
	requirePanicsWith(t, vb.ErrInvalidSize, func() { vb.NewVertexBuffer[point](dev, 0) })
	requirePanicsWith(t, vb.ErrInvalidStride, func() { vb.NewVertexBuffer[packed](dev, 4) })
	requirePanicsWith(t, vb.ErrInvalidStride, func() { vb.NewVertexBuffer[struct{}](dev, 4) })
}

func TestSetVertexChangeDetection(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 8)

	assert.True(t, buf.SetVertex(0, point{}), "first write of a zero value is a change")
	assert.False(t, buf.SetVertex(0, point{}))
	assert.True(t, buf.SetVertex(0, point{1, 2}))
	assert.False(t, buf.SetVertex(0, point{1, 2}))
	assert.Equal(t, 0, buf.LastWrittenIndex())

	assert.True(t, buf.SetVertex(3, point{}), "skipping ahead is a change")
	assert.Equal(t, 3, buf.LastWrittenIndex())
	assert.False(t, buf.SetVertex(2, point{}), "slots below the high-water mark compare against staging")
	assert.Equal(t, 3, buf.LastWrittenIndex(), "the high-water mark never decreases")
	assert.Equal(t, point{1, 2}, buf.Vertex(0))

	assert.Empty(t, dev.Buffers, "writes stay on the CPU")
}

func TestSetVertexComparesBytes(t *testing.T) {
	buf := vb.NewVertexBuffer[point](buffertest.NewDevice(), 2)
	negZero := float32(math.Copysign(0, -1))
	nan := float32(math.NaN())

	buf.SetVertex(0, point{negZero, 0})
	assert.True(t, buf.SetVertex(0, point{0, 0}), "+0 over -0 changes the uploaded bytes")
	assert.True(t, buf.SetVertex(0, point{negZero, 0}))

	buf.SetVertex(1, point{nan, 0})
	assert.False(t, buf.SetVertex(1, point{nan, 0}), "the same NaN bits are unchanged")
}

func TestSetVertexOutOfRange(t *testing.T) {
	buf := vb.NewVertexBuffer[point](buffertest.NewDevice(), 4)
	requirePanicsWith(t, vb.ErrIndexOutOfRange, func() { buf.SetVertex(4, point{}) })
	requirePanicsWith(t, vb.ErrIndexOutOfRange, func() { buf.SetVertex(-1, point{}) })
}

func TestUpdateRangeAllocatesAndUploadsWrittenVertices(t *testing.T) {
	dev := buffertest.NewDevice()
	dev.Frame = 7
	buf := vb.NewVertexBuffer[point](dev, 8)
	staged := []point{{1, 1}, {2, 2}, {3, 3}}
	for i, p := range staged {
		buf.SetVertex(i, p)
	}

	require.NoError(t, buf.UpdateRange(1, 2))

	require.Len(t, dev.Buffers, 1)
	gpu := dev.Buffers[0]
	assert.Equal(t, uint64(64), gpu.Size())
	assert.Equal(t, vb.BufferUsageVertex|vb.BufferUsageCopyDst, gpu.Usage)
	require.Len(t, dev.Writes, 1)
	assert.Equal(t, buffertest.Write{Buffer: gpu, Offset: 0, Size: 24}, dev.Writes[0])
	assert.Equal(t, common.SliceToBytes(staged), gpu.Bytes[:24])
	assert.True(t, buf.InUse())
	assert.Equal(t, uint64(7), buf.LastUseFrame())
}

func TestUpdateRangeCopiesOnlyTheRange(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 8)
	for i := range 6 {
		buf.SetVertex(i, point{float32(i), 0})
	}
	require.NoError(t, buf.UpdateRange(0, 6))
	dev.Reset()

	buf.SetVertex(2, point{20, 0})
	buf.SetVertex(3, point{30, 0})
	require.NoError(t, buf.UpdateRange(2, 4))

	require.Len(t, dev.Writes, 1)
	assert.Equal(t, uint64(16), dev.Writes[0].Offset)
	assert.Equal(t, 16, dev.Writes[0].Size)
	assert.Equal(t, common.SliceToBytes([]point{{20, 0}, {30, 0}}), dev.Buffers[0].Bytes[16:32])

	dev.Reset()
	require.NoError(t, buf.UpdateRange(5, 5))
	assert.Empty(t, dev.Writes)
}

func TestUpdateRangeInvalid(t *testing.T) {
	buf := vb.NewVertexBuffer[point](buffertest.NewDevice(), 4)
	requirePanicsWith(t, vb.ErrInvalidRange, func() { _ = buf.UpdateRange(3, 2) })
	requirePanicsWith(t, vb.ErrInvalidRange, func() { _ = buf.UpdateRange(0, 5) })
	requirePanicsWith(t, vb.ErrInvalidRange, func() { _ = buf.DrawRange(-1, 2) })
}

func TestDrawRangeLinear(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 8)
	for i := range 5 {
		buf.SetVertex(i, point{float32(i), 1})
	}

	require.NoError(t, buf.DrawRange(2, 5))

	require.Len(t, dev.Draws, 1)
	draw := dev.Draws[0]
	assert.False(t, draw.Indexed)
	assert.Equal(t, uint32(3), draw.Count)
	assert.Equal(t, uint32(2), draw.First)
	assert.Equal(t, uint32(1), draw.InstanceCount)
	assert.Same(t, dev.Buffers[0], draw.Vertices)
	assert.Equal(t, 40, dev.BytesWritten(), "binding a fresh buffer uploads the written vertices")
}

func TestDrawRangeEmptyIsNoop(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 8)

	require.NoError(t, buf.DrawRange(3, 3))

	assert.Empty(t, dev.Draws)
	assert.Empty(t, dev.Buffers)
}

func TestFreeIsIdempotentAndReusable(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 4)
	buf.SetVertex(0, point{1, 1})
	buf.SetVertex(1, point{2, 2})
	require.NoError(t, buf.Bind())
	require.True(t, buf.InUse())

	buf.Free()
	buf.Free()

	assert.False(t, buf.InUse())
	assert.Zero(t, buf.LastUseFrame())
	assert.True(t, dev.Buffers[0].Released)

	dev.Reset()
	dev.Frame = 3
	require.NoError(t, buf.DrawRange(0, 2))
	require.Len(t, dev.Buffers, 2, "a freed buffer allocates fresh GPU memory")
	assert.Equal(t, 16, dev.BytesWritten(), "staged data survives Free and is re-uploaded")
	assert.Equal(t, common.SliceToBytes([]point{{1, 1}, {2, 2}}), dev.Buffers[1].Bytes[:16])
	assert.Equal(t, uint64(3), buf.LastUseFrame())
}

func TestDispose(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 4)
	buf.SetVertex(0, point{})
	require.NoError(t, buf.Bind())

	buf.Dispose()
	buf.Dispose()

	assert.True(t, buf.Disposed())
	assert.False(t, buf.InUse())
	assert.Equal(t, 0, dev.Live())
	requirePanicsWith(t, vb.ErrDisposed, func() { buf.SetVertex(0, point{}) })
	requirePanicsWith(t, vb.ErrDisposed, func() { _ = buf.UpdateRange(0, 1) })
	requirePanicsWith(t, vb.ErrDisposed, func() { _ = buf.Bind() })
	requirePanicsWith(t, vb.ErrDisposed, func() { _ = buf.DrawRange(0, 1) })
}

func TestFrameMarkerIsNonzeroWhileInUse(t *testing.T) {
	dev := buffertest.NewDevice()
	dev.Frame = 0
	buf := vb.NewVertexBuffer[point](dev, 4)

	require.NoError(t, buf.Bind())

	assert.True(t, buf.InUse())
	assert.Equal(t, uint64(1), buf.LastUseFrame())
}

func TestAllocationFailure(t *testing.T) {
	dev := buffertest.NewDevice()
	cause := errors.New("out of memory")
	dev.CreateErr = cause
	buf := vb.NewVertexBuffer[point](dev, 4)
	buf.SetVertex(0, point{})

	err := buf.UpdateRange(0, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, vb.ErrAllocationFailed)
	assert.ErrorIs(t, err, cause)
	assert.False(t, buf.InUse())

	err = buf.DrawRange(0, 1)
	assert.ErrorIs(t, err, vb.ErrAllocationFailed)
	assert.Empty(t, dev.Draws)
}

func TestUploadFailure(t *testing.T) {
	dev := buffertest.NewDevice()
	buf := vb.NewVertexBuffer[point](dev, 4)
	buf.SetVertex(0, point{})
	require.NoError(t, buf.Bind())

	dev.WriteErr = errors.New("queue lost")
	err := buf.UpdateRange(0, 1)

	assert.ErrorIs(t, err, vb.ErrUploadFailed)
	assert.ErrorIs(t, err, dev.WriteErr)
}
