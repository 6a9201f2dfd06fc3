package vertex_buffer

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-batch/common"
)

// VertexBuffer is a fixed-capacity block of vertices with a CPU staging copy and a lazily allocated
// GPU copy. Writes go to staging memory and report whether they changed anything; only explicitly
// updated ranges are copied to the GPU.
type VertexBuffer[T comparable] interface {
	// Size returns the capacity of the buffer in vertices.
	//
	// Returns:
	//   - int: the vertex capacity
	Size() int

	// Stride returns the size of one vertex in bytes.
	//
	// Returns:
	//   - int: the vertex stride
	Stride() int

	// Label returns the debug label of the GPU buffer.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Topology returns the topology used to draw the buffer.
	//
	// Returns:
	//   - Topology: the topology
	Topology() Topology

	// LastWrittenIndex returns the highest index ever written, or -1 when nothing has been written.
	//
	// Returns:
	//   - int: the highest written index
	LastWrittenIndex() int

	// InUse reports whether GPU memory is currently allocated.
	//
	// Returns:
	//   - bool: true if the buffer holds GPU memory
	InUse() bool

	// LastUseFrame returns the frame of the last allocation, upload or bind. Zero when not in use.
	//
	// Returns:
	//   - uint64: the frame marker
	LastUseFrame() uint64

	// SetVertex writes a vertex into staging memory. No GPU work is done.
	// An index outside [0, Size()) panics with ErrIndexOutOfRange.
	//
	// Parameters:
	//   - index: the vertex position
	//   - v: the vertex value
	//
	// Returns:
	//   - bool: true if the index was never written before or the stored bytes differed
	SetVertex(index int, v T) bool

	// Vertex returns the staged vertex at index.
	//
	// Parameters:
	//   - index: the vertex position
	//
	// Returns:
	//   - T: the staged value
	Vertex(index int) T

	// UpdateRange copies the staged vertices [begin, end) to the GPU copy, allocating GPU memory first
	// if necessary. A fresh allocation uploads every written vertex.
	//
	// Parameters:
	//   - begin: the first vertex
	//   - end: one past the last vertex
	//
	// Returns:
	//   - error: an error wrapping ErrAllocationFailed or ErrUploadFailed
	UpdateRange(begin, end int) error

	// Bind binds the buffer, and any topology state, for drawing. GPU memory is allocated if necessary.
	//
	// Returns:
	//   - error: an error if allocation or topology binding failed
	Bind() error

	// DrawRange binds the buffer and issues exactly one draw covering the vertices [begin, end).
	// An empty range is a no-op.
	//
	// Parameters:
	//   - begin: the first vertex
	//   - end: one past the last vertex
	//
	// Returns:
	//   - error: an error if binding failed
	DrawRange(begin, end int) error

	// Free releases the GPU memory. Staged data is kept and the buffer stays usable. Idempotent.
	Free()

	// Dispose frees the buffer and makes it unusable. Later writes, binds, uploads or draws panic with ErrDisposed.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true after Dispose
	Disposed() bool
}

type vertexBuffer[T comparable] struct {
	device   Device
	topology Topology
	registry *Registry
	logger   *slog.Logger
	label    string

	staging          []T
	stride           int
	lastWrittenIndex int

	gpu          GPUBuffer
	lastUseFrame uint64
	disposed     bool
}

var _ VertexBuffer[int32] = &vertexBuffer[int32]{}

// NewVertexBuffer creates a buffer holding size vertices of type T. The size of T must be a non-zero
// multiple of 4 bytes and size must be positive, otherwise NewVertexBuffer panics.
//
// Parameters:
//   - device: the device used for allocation, upload and drawing
//   - size: the capacity in vertices
//   - options: configuration options
//
// Returns:
//   - VertexBuffer[T]: the buffer
func NewVertexBuffer[T comparable](device Device, size int, options ...VertexBufferOption) VertexBuffer[T] {
	if size <= 0 {
		panic(fmt.Errorf("%w: %d", ErrInvalidSize, size))
	}
	stride := common.SizeOf[T]()
	if stride == 0 || stride%4 != 0 {
		panic(fmt.Errorf("%w: %T is %d bytes", ErrInvalidStride, *new(T), stride))
	}

	cfg := &bufferConfig{
		label:    "Vertex Buffer",
		topology: LinearTopology{},
	}
	for _, opt := range options {
		opt(cfg)
	}
	cfg.topology.Validate(size)

	return &vertexBuffer[T]{
		device:           device,
		topology:         cfg.topology,
		registry:         cfg.registry,
		logger:           common.Coalesce(cfg.logger, slog.New(slog.DiscardHandler)),
		label:            cfg.label,
		staging:          make([]T, size),
		stride:           stride,
		lastWrittenIndex: -1,
	}
}

// NewQuadVertexBuffer creates a buffer drawn as quads through the shared index provider.
// Every 4 vertices form one quad; more than MaxQuads quads panics with ErrIndexRangeExceeded.
//
// Parameters:
//   - device: the device used for allocation, upload and drawing
//   - indices: the renderer's shared quad index provider
//   - size: the capacity in vertices
//   - options: configuration options
//
// Returns:
//   - VertexBuffer[T]: the buffer
func NewQuadVertexBuffer[T comparable](device Device, indices *QuadIndexProvider, size int, options ...VertexBufferOption) VertexBuffer[T] {
	options = append(options, WithTopology(NewQuadTopology(indices)))
	return NewVertexBuffer[T](device, size, options...)
}

func (b *vertexBuffer[T]) Size() int {
	return len(b.staging)
}

func (b *vertexBuffer[T]) Stride() int {
	return b.stride
}

func (b *vertexBuffer[T]) Label() string {
	return b.label
}

func (b *vertexBuffer[T]) Topology() Topology {
	return b.topology
}

func (b *vertexBuffer[T]) LastWrittenIndex() int {
	return b.lastWrittenIndex
}

func (b *vertexBuffer[T]) InUse() bool {
	return b.gpu != nil
}

func (b *vertexBuffer[T]) LastUseFrame() uint64 {
	return b.lastUseFrame
}

func (b *vertexBuffer[T]) Disposed() bool {
	return b.disposed
}

func (b *vertexBuffer[T]) SetVertex(index int, v T) bool {
	b.checkAlive()
	if index < 0 || index >= len(b.staging) {
		panic(fmt.Errorf("%w: %d not in [0, %d) of %s", ErrIndexOutOfRange, index, len(b.staging), b.label))
	}

	changed := index > b.lastWrittenIndex || !bytes.Equal(common.ValueBytes(&b.staging[index]), common.ValueBytes(&v))
	b.staging[index] = v
	if index > b.lastWrittenIndex {
		b.lastWrittenIndex = index
	}
	return changed
}

func (b *vertexBuffer[T]) Vertex(index int) T {
	b.checkAlive()
	return b.staging[index]
}

func (b *vertexBuffer[T]) UpdateRange(begin, end int) error {
	b.checkAlive()
	b.checkRange(begin, end)
	if !b.InUse() {
		return b.allocate()
	}
	if begin == end {
		return nil
	}
	b.markUsed()
	return b.upload(begin, end)
}

func (b *vertexBuffer[T]) Bind() error {
	b.checkAlive()
	if !b.InUse() {
		if err := b.allocate(); err != nil {
			return err
		}
	}
	b.markUsed()
	b.device.SetVertexBuffer(b.gpu, 0, b.gpu.Size())
	return b.topology.Bind(b.device, len(b.staging))
}

func (b *vertexBuffer[T]) DrawRange(begin, end int) error {
	b.checkAlive()
	b.checkRange(begin, end)
	if begin == end {
		return nil
	}
	if err := b.Bind(); err != nil {
		return err
	}
	b.topology.Draw(b.device, begin, end)
	return nil
}

func (b *vertexBuffer[T]) Free() {
	if b.gpu == nil {
		return
	}
	b.gpu.Release()
	b.gpu = nil
	b.lastUseFrame = 0
	if b.registry != nil {
		b.registry.Untrack(b)
	}
}

func (b *vertexBuffer[T]) Dispose() {
	if b.disposed {
		return
	}
	b.Free()
	b.disposed = true
	b.staging = nil
}

// allocate creates the GPU copy and uploads everything written so far.
func (b *vertexBuffer[T]) allocate() error {
	size := uint64(len(b.staging) * b.stride)
	buf, err := b.device.CreateBuffer(b.label, size, BufferUsageVertex|BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("%w: %s (%d bytes): %w", ErrAllocationFailed, b.label, size, err)
	}
	b.gpu = buf
	b.markUsed()
	if b.registry != nil {
		b.registry.Track(b)
	}
	b.logger.Debug("vertex buffer allocated", "label", b.label, "bytes", size, "frame", b.lastUseFrame)

	if b.lastWrittenIndex < 0 {
		return nil
	}
	return b.upload(0, b.lastWrittenIndex+1)
}

func (b *vertexBuffer[T]) upload(begin, end int) error {
	data := common.SliceToBytes(b.staging[begin:end])
	if err := b.device.WriteBuffer(b.gpu, uint64(begin*b.stride), data); err != nil {
		return fmt.Errorf("%w: %s [%d, %d): %w", ErrUploadFailed, b.label, begin, end, err)
	}
	return nil
}

// markUsed stamps the current frame. The marker stays nonzero while GPU memory is held.
func (b *vertexBuffer[T]) markUsed() {
	b.lastUseFrame = max(b.device.FrameIndex(), 1)
}

func (b *vertexBuffer[T]) checkAlive() {
	if b.disposed {
		panic(fmt.Errorf("%w: %s", ErrDisposed, b.label))
	}
}

func (b *vertexBuffer[T]) checkRange(begin, end int) {
	if begin < 0 || begin > end || end > len(b.staging) {
		panic(fmt.Errorf("%w: [%d, %d) of %s with %d vertices", ErrInvalidRange, begin, end, b.label, len(b.staging)))
	}
}
