// Package vertex_buffer owns fixed-capacity blocks of GPU vertex memory, their CPU staging copies and the
// shared quad index buffer. It talks to the graphics backend only through the Device interface so the
// dirty-tracking logic is independent of the GPU API in use.
package vertex_buffer

// BufferUsage is a backend-neutral set of usage flags for a GPU buffer.
type BufferUsage uint32

const (
	// BufferUsageVertex marks a buffer bindable as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << iota
	// BufferUsageIndex marks a buffer bindable as an index buffer.
	BufferUsageIndex
	// BufferUsageCopyDst marks a buffer as a destination of queue writes.
	BufferUsageCopyDst
)

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	// IndexFormatUint16 indexes with 16-bit unsigned integers.
	IndexFormatUint16 IndexFormat = iota
	// IndexFormatUint32 indexes with 32-bit unsigned integers.
	IndexFormatUint32
)

// GPUBuffer is a handle to GPU-resident memory created by a Device.
type GPUBuffer interface {
	// Size returns the size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the allocation size in bytes
	Size() uint64

	// Release frees the GPU memory. The handle must not be used afterwards.
	Release()
}

// Device is the narrow slice of the graphics backend consumed by vertex buffers, the quad index provider
// and vertex batches. All calls happen on the single GPU-submission thread.
type Device interface {
	// CreateBuffer allocates a GPU buffer of size bytes with the given usage.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - size: the buffer size in bytes (a multiple of 4)
	//   - usage: the usage flags of the buffer
	//
	// Returns:
	//   - GPUBuffer: the created buffer
	//   - error: an error if the allocation failed
	CreateBuffer(label string, size uint64, usage BufferUsage) (GPUBuffer, error)

	// WriteBuffer copies data into buf starting at offset bytes.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination offset in bytes (a multiple of 4)
	//   - data: the bytes to copy (length a multiple of 4)
	//
	// Returns:
	//   - error: an error if the copy could not be queued
	WriteBuffer(buf GPUBuffer, offset uint64, data []byte) error

	// SetVertexBuffer binds buf as the vertex buffer for subsequent draws.
	//
	// Parameters:
	//   - buf: the vertex buffer
	//   - offset: the byte offset of the first vertex
	//   - size: the number of bytes bound
	SetVertexBuffer(buf GPUBuffer, offset, size uint64)

	// SetIndexBuffer binds buf as the index buffer for subsequent indexed draws.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - format: the index element format
	//   - offset: the byte offset of the first index
	//   - size: the number of bytes bound
	SetIndexBuffer(buf GPUBuffer, format IndexFormat, offset, size uint64)

	// Draw issues a non-indexed draw.
	//
	// Parameters:
	//   - vertexCount: number of vertices to draw
	//   - instanceCount: number of instances to draw
	//   - firstVertex: index of the first vertex
	//   - firstInstance: index of the first instance
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed issues an indexed draw using the bound index buffer.
	//
	// Parameters:
	//   - indexCount: number of indices to draw
	//   - instanceCount: number of instances to draw
	//   - firstIndex: position of the first index in the index buffer
	//   - baseVertex: value added to each index before fetching the vertex
	//   - firstInstance: index of the first instance
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// FrameIndex returns the index of the frame currently being recorded. The first frame is 1.
	//
	// Returns:
	//   - uint64: the current frame index
	FrameIndex() uint64
}
