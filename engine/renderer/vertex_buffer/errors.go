package vertex_buffer

import "errors"

// Usage errors. These are raised with panic: they indicate a programming error, not a runtime condition.
var (
	// ErrIndexOutOfRange is raised when a vertex index is outside the buffer capacity.
	ErrIndexOutOfRange = errors.New("vertex_buffer: vertex index out of range")

	// ErrInvalidRange is raised when a [begin, end) range is reversed or exceeds the buffer capacity.
	ErrInvalidRange = errors.New("vertex_buffer: invalid vertex range")

	// ErrDisposed is raised when a disposed buffer is written, bound or drawn.
	ErrDisposed = errors.New("vertex_buffer: buffer has been disposed")

	// ErrIndexRangeExceeded is raised when a quad buffer needs indices beyond the 16-bit index format.
	ErrIndexRangeExceeded = errors.New("vertex_buffer: quad count exceeds 16-bit index range")

	// ErrInvalidStride is raised when a vertex type's size is zero or not a multiple of 4 bytes.
	ErrInvalidStride = errors.New("vertex_buffer: vertex stride must be a non-zero multiple of 4 bytes")

	// ErrInvalidSize is raised when a buffer is created with a non-positive capacity, or a quad buffer
	// with a capacity that is not a multiple of four.
	ErrInvalidSize = errors.New("vertex_buffer: invalid buffer capacity")
)

// Resource errors. These are returned to the caller and never retried.
var (
	// ErrAllocationFailed wraps a backend failure to create GPU memory.
	ErrAllocationFailed = errors.New("vertex_buffer: GPU allocation failed")

	// ErrUploadFailed wraps a backend failure to copy staged data to GPU memory.
	ErrUploadFailed = errors.New("vertex_buffer: GPU upload failed")
)
