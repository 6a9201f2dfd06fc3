package vertex_batch_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer/buffertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stride = 24

func v(i int) vertex.Coloured2D {
	return vertex.Coloured2D{
		Position: [2]float32{float32(i), float32(-i)},
		Colour:   [4]float32{1, 1, 1, 1},
	}
}

func addAll(t *testing.T, b vertex_batch.VertexBatch[vertex.Coloured2D], vs ...vertex.Coloured2D) {
	t.Helper()
	for _, x := range vs {
		require.NoError(t, b.Add(x))
	}
}

func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic wrapping %v", target)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, target)
	}()
	fn()
}

func TestNewVertexBatchDefaults(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev)

	assert.Equal(t, vertex_batch.DefaultBufferSize, b.Size())
	assert.Equal(t, vertex_batch.DefaultSlotCount, b.SlotCount())
	assert.Equal(t, 0, b.ActiveSlot())
	assert.Zero(t, b.Cycle())
	assert.Zero(t, b.BufferCount(0))
	assert.Zero(t, b.BufferCount(1))
	assert.Empty(t, dev.Buffers)
	requirePanicsWith(t, vertex_batch.ErrInvalidSlot, func() { b.BufferCount(2) })
}

func TestNewVertexBatchInvalid(t *testing.T) {
	dev := buffertest.NewDevice()
	requirePanicsWith(t, vertex_buffer.ErrInvalidSize, func() {
		vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(0))
	})
	requirePanicsWith(t, vertex_batch.ErrInvalidSlotCount, func() {
		vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithSlotCount(0))
	})
	requirePanicsWith(t, vertex_buffer.ErrIndexRangeExceeded, func() {
		indices := vertex_buffer.NewQuadIndexProvider(dev, nil)
		vertex_batch.NewQuadBatch[vertex.Coloured2D](dev, indices, vertex_batch.WithBufferSize(vertex_buffer.MaxQuads*4+1))
	})
}

func TestQuadBatchRoundsToWholeQuads(t *testing.T) {
	dev := buffertest.NewDevice()
	indices := vertex_buffer.NewQuadIndexProvider(dev, nil)
	b := vertex_batch.NewQuadBatch[vertex.Coloured2D](dev, indices, vertex_batch.WithBufferSize(6))
	assert.Equal(t, 8, b.Size())
}

func TestDrawIsIdempotent(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(8))
	addAll(t, b, v(0), v(1), v(2))

	n, err := b.Draw()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	writes, draws := len(dev.Writes), len(dev.Draws)

	n, err = b.Draw()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, dev.Writes, writes, "a no-op draw uploads nothing")
	assert.Len(t, dev.Draws, draws, "a no-op draw issues no draw call")
}

func TestDrawOnlyCoversNewVertices(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(8))
	addAll(t, b, v(0), v(1))
	_, err := b.Draw()
	require.NoError(t, err)
	addAll(t, b, v(2), v(3), v(4))

	n, err := b.Draw()

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, uint32(3), dev.Draws[1].Count)
	assert.Equal(t, uint32(2), dev.Draws[1].First)
	require.Len(t, dev.Writes, 2)
	assert.Equal(t, buffertest.Write{Buffer: dev.Buffers[0], Offset: 2 * stride, Size: 3 * stride}, dev.Writes[1])
}

func TestDirtyRangeOnlyCoversChangedVertices(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(16), vertex_batch.WithSlotCount(1))
	for i := range 7 {
		require.NoError(t, b.Add(v(i)))
	}
	_, err := b.Draw()
	require.NoError(t, err)

	b.ResetCounters()
	dev.Reset()
	for i := range 6 {
		require.NoError(t, b.Add(v(i)))
	}
	require.NoError(t, b.Add(v(60)))
	n, err := b.Draw()

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.Len(t, dev.Writes, 1)
	assert.Equal(t, uint64(6*stride), dev.Writes[0].Offset, "index 5 kept its value and is not uploaded")
	assert.Equal(t, stride, dev.Writes[0].Size)
	assert.Equal(t, 8, b.Stats().VerticesUploaded)
}

func TestUnchangedCycleUploadsNothing(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(8))
	for range 3 * b.SlotCount() {
		b.ResetCounters()
		addAll(t, b, v(0), v(1), v(2), v(3))
		_, err := b.Draw()
		require.NoError(t, err)
	}

	assert.Len(t, dev.Writes, b.SlotCount(), "each slot uploads its buffer once")
	assert.Len(t, dev.Draws, 3*b.SlotCount())
	assert.Equal(t, b.SlotCount(), b.Stats().BuffersCreated)
}

func TestOverflowRotatesToNextBuffer(t *testing.T) {
	const n = 4
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(n), vertex_batch.WithSlotCount(1))

	for i := range n {
		require.NoError(t, b.Add(v(i)))
	}
	assert.Empty(t, dev.Draws, "filling a buffer does not draw")

	require.NoError(t, b.Add(v(n)))

	require.Len(t, dev.Draws, 1, "the N+1th vertex flushes the full buffer exactly once")
	assert.Equal(t, uint32(n), dev.Draws[0].Count)
	assert.Equal(t, 2, b.BufferCount(0))
	assert.Equal(t, 1, b.Stats().ImplicitFlushes)

	count, err := b.Draw()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, uint32(0), dev.Draws[1].First, "the overflowing vertex lands at index 0")
	assert.Same(t, dev.Buffers[1], dev.Draws[1].Vertices)

	b.ResetCounters()
	for i := range n + 1 {
		require.NoError(t, b.Add(v(i)))
	}
	assert.Equal(t, 2, b.BufferCount(0), "the second buffer is reused in later cycles")
	assert.Len(t, dev.Buffers, 2)
}

func TestResetCountersStartsFresh(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(4), vertex_batch.WithSlotCount(1))
	addAll(t, b, v(0), v(1), v(2), v(3), v(4), v(5))

	b.ResetCounters()
	n, err := b.Draw()
	require.NoError(t, err)
	assert.Zero(t, n, "vertices of the previous cycle are not drawn after a reset")

	require.NoError(t, b.Add(v(9)))
	n, err = b.Draw()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	last := dev.Draws[len(dev.Draws)-1]
	assert.Equal(t, uint32(0), last.First)
	assert.Equal(t, uint32(1), last.Count)
	assert.Same(t, dev.Buffers[0], last.Vertices, "the first buffer of the slot is written first")
}

func TestSlotsRotatePerCycle(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(4), vertex_batch.WithSlotCount(3))

	var seen []int
	for range 6 {
		b.ResetCounters()
		seen = append(seen, b.ActiveSlot())
		addAll(t, b, v(int(b.Cycle())))
		_, err := b.Draw()
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 2, 0, 1, 2, 0}, seen)
	assert.Equal(t, uint64(6), b.Cycle())
	for s := range 3 {
		assert.Equal(t, 1, b.BufferCount(s))
	}
	require.Len(t, dev.Draws, 6)
	assert.NotSame(t, dev.Draws[0].Vertices, dev.Draws[1].Vertices, "consecutive cycles write disjoint buffers")
	assert.Same(t, dev.Draws[0].Vertices, dev.Draws[3].Vertices)
}

func TestQuadBatchScenario(t *testing.T) {
	dev := buffertest.NewDevice()
	indices := vertex_buffer.NewQuadIndexProvider(dev, nil)
	b := vertex_batch.NewQuadBatch[vertex.Coloured2D](dev, indices, vertex_batch.WithBufferSize(4))

	addAll(t, b, v(0), v(1), v(2), v(3))
	assert.Empty(t, dev.Draws)

	require.NoError(t, b.Add(v(4)))
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, 4, b.Stats().VerticesDrawn, "the implicit draw covers the full buffer")
	assert.True(t, dev.Draws[0].Indexed)
	assert.Equal(t, uint32(6), dev.Draws[0].Count)
	assert.Equal(t, uint32(0), dev.Draws[0].First)
	assert.Equal(t, vertex_buffer.IndexFormatUint16, dev.Draws[0].IndexFormat)

	n, err := b.Draw()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, b.BufferCount(b.ActiveSlot()))
	last := dev.Draws[1]
	assert.Equal(t, uint32(0), last.First)
	assert.NotSame(t, dev.Draws[0].Vertices, last.Vertices)
	assert.Same(t, dev.Draws[0].Indices, last.Indices, "quad buffers share one index buffer")
	assert.Equal(t, 1, indices.Quads())
}

func TestQuadBatchTwoQuads(t *testing.T) {
	dev := buffertest.NewDevice()
	indices := vertex_buffer.NewQuadIndexProvider(dev, nil)
	b := vertex_batch.NewQuadBatch[vertex.Coloured2D](dev, indices, vertex_batch.WithBufferSize(4))

	addAll(t, b, v(0), v(1), v(2), v(3), v(4), v(5))
	n, err := b.Draw()

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, uint32(3), dev.Draws[1].Count)
	assert.Equal(t, vertex_batch.Stats{
		DrawCalls:        2,
		VerticesDrawn:    6,
		VerticesUploaded: 6,
		BuffersCreated:   2,
		ImplicitFlushes:  1,
	}, b.Stats())
}

func TestDrawFailureKeepsPendingVertices(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(8))
	addAll(t, b, v(0), v(1))

	dev.CreateErr = errors.New("device lost")
	n, err := b.Draw()
	assert.Zero(t, n)
	assert.ErrorIs(t, err, vertex_buffer.ErrAllocationFailed)

	dev.CreateErr = nil
	n, err = b.Draw()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2*stride, dev.BytesWritten())
}

func TestOverflowDrawFailureIsReturned(t *testing.T) {
	dev := buffertest.NewDevice()
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(2))
	addAll(t, b, v(0), v(1))

	dev.CreateErr = errors.New("device lost")
	err := b.Add(v(2))

	assert.ErrorIs(t, err, vertex_buffer.ErrAllocationFailed)
	assert.Equal(t, 1, b.BufferCount(b.ActiveSlot()), "no rotation happens when the flush fails")
}

func TestReclaimedBufferIsRebuiltOnDraw(t *testing.T) {
	dev := buffertest.NewDevice()
	reg := vertex_buffer.NewRegistry(nil)
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev,
		vertex_batch.WithBufferSize(8),
		vertex_batch.WithSlotCount(1),
		vertex_batch.WithRegistry(reg),
	)
	addAll(t, b, v(0), v(1))
	_, err := b.Draw()
	require.NoError(t, err)
	require.Equal(t, 1, reg.FreeUnused(500, 300))

	b.ResetCounters()
	dev.Reset()
	addAll(t, b, v(0), v(1))
	n, err := b.Draw()

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2*stride, dev.BytesWritten(), "unchanged vertices are re-uploaded into the new GPU memory")
	assert.Len(t, dev.Buffers, 2)
}

func TestDispose(t *testing.T) {
	dev := buffertest.NewDevice()
	tracker := vertex_batch.NewTracker(nil)
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](dev, vertex_batch.WithBufferSize(2), vertex_batch.WithTracker(tracker))
	addAll(t, b, v(0), v(1), v(2))
	_, err := b.Draw()
	require.NoError(t, err)
	b.ResetCounters()
	addAll(t, b, v(0))
	_, err = b.Draw()
	require.NoError(t, err)
	require.Equal(t, 3, dev.Live())

	b.Dispose()
	b.Dispose()

	assert.True(t, b.Disposed())
	assert.Zero(t, dev.Live(), "every buffer of every slot is released")
	assert.Nil(t, tracker.Active())
	requirePanicsWith(t, vertex_buffer.ErrDisposed, func() { _ = b.Add(v(0)) })
	requirePanicsWith(t, vertex_buffer.ErrDisposed, func() { _, _ = b.Draw() })
}
