package vertex_batch

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
)

const (
	// DefaultBufferSize is the default capacity, in vertices, of every buffer owned by a batch.
	DefaultBufferSize = 1000
	// DefaultSlotCount is the default number of buffer slots a batch rotates through.
	DefaultSlotCount = 2
)

type batchConfig struct {
	bufferSize int
	slotCount  int
	label      string
	indices    *vertex_buffer.QuadIndexProvider
	registry   *vertex_buffer.Registry
	tracker    *Tracker
	logger     *slog.Logger
}

// VertexBatchOption is a function that configures a VertexBatch.
type VertexBatchOption func(*batchConfig)

// WithBufferSize sets the capacity, in vertices, of each buffer the batch creates.
// Quad batches round the size up to a whole number of quads.
//
// Parameters:
//   - size: the buffer capacity in vertices
//
// Returns:
//   - VertexBatchOption: a function that applies the buffer size
func WithBufferSize(size int) VertexBatchOption {
	return func(c *batchConfig) {
		c.bufferSize = size
	}
}

// WithSlotCount sets how many independent buffer slots the batch rotates through, one per cycle.
//
// Parameters:
//   - count: the number of slots
//
// Returns:
//   - VertexBatchOption: a function that applies the slot count
func WithSlotCount(count int) VertexBatchOption {
	return func(c *batchConfig) {
		c.slotCount = count
	}
}

// WithLabel sets the label prefix of the batch's GPU buffers.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - VertexBatchOption: a function that applies the label
func WithLabel(label string) VertexBatchOption {
	return func(c *batchConfig) {
		c.label = label
	}
}

// WithQuadIndices makes the batch draw every 4 vertices as a quad through the given shared index provider.
//
// Parameters:
//   - indices: the renderer's quad index provider
//
// Returns:
//   - VertexBatchOption: a function that applies the quad topology
func WithQuadIndices(indices *vertex_buffer.QuadIndexProvider) VertexBatchOption {
	return func(c *batchConfig) {
		c.indices = indices
	}
}

// WithRegistry registers the batch's buffers with a registry so idle ones can be reclaimed.
//
// Parameters:
//   - registry: the buffer registry
//
// Returns:
//   - VertexBatchOption: a function that applies the registry
func WithRegistry(registry *vertex_buffer.Registry) VertexBatchOption {
	return func(c *batchConfig) {
		c.registry = registry
	}
}

// WithTracker makes the batch flush the previously active batch of the tracker before accepting vertices.
//
// Parameters:
//   - tracker: the active batch tracker
//
// Returns:
//   - VertexBatchOption: a function that applies the tracker
func WithTracker(tracker *Tracker) VertexBatchOption {
	return func(c *batchConfig) {
		c.tracker = tracker
	}
}

// WithLogger sets the logger of the batch and its buffers.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - VertexBatchOption: a function that applies the logger
func WithLogger(logger *slog.Logger) VertexBatchOption {
	return func(c *batchConfig) {
		c.logger = logger
	}
}
