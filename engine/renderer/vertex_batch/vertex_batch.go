// Package vertex_batch accumulates vertices produced during a frame into pooled vertex buffers and submits
// them with as few uploads and draw calls as possible. Unchanged vertices are never re-uploaded, full
// buffers are drawn and rotated implicitly, and every cycle writes into its own slot of buffers so the CPU
// does not overwrite memory the GPU may still be reading from the previous cycle.
package vertex_batch

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
)

// VertexBatch accumulates vertices of type T and draws them in as few calls as possible.
// A batch is owned by the rendering thread and is not safe for concurrent use.
type VertexBatch[T comparable] interface {
	// Size returns the capacity, in vertices, of each buffer owned by the batch.
	//
	// Returns:
	//   - int: the buffer capacity
	Size() int

	// SlotCount returns the number of buffer slots the batch rotates through.
	//
	// Returns:
	//   - int: the slot count
	SlotCount() int

	// ActiveSlot returns the slot written by the current cycle.
	//
	// Returns:
	//   - int: the active slot
	ActiveSlot() int

	// Cycle returns how many times ResetCounters has been called.
	//
	// Returns:
	//   - uint64: the cycle counter
	Cycle() uint64

	// BufferCount returns how many buffers have been created for the given slot.
	//
	// Parameters:
	//   - slot: the slot index
	//
	// Returns:
	//   - int: the number of buffers in the slot
	BufferCount(slot int) int

	// Add appends a vertex to the current cycle. When the active buffer is full it is drawn and the
	// next buffer of the slot, created on first use, takes over at index 0.
	//
	// Parameters:
	//   - v: the vertex
	//
	// Returns:
	//   - error: an error if an implicit draw failed
	Add(v T) error

	// Draw uploads the vertices changed since the last upload and draws every vertex added since the
	// last draw in one call. Nothing is uploaded or drawn when no vertex was added.
	//
	// Returns:
	//   - int: the number of vertices drawn
	//   - error: an error wrapping vertex_buffer.ErrAllocationFailed or vertex_buffer.ErrUploadFailed
	Draw() (int, error)

	// ResetCounters starts a new cycle on the next slot. Buffers are kept and reused.
	ResetCounters()

	// Dispose releases every buffer of every slot. Idempotent. Later Add or Draw calls panic.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true after Dispose
	Disposed() bool

	// Stats returns the batch's lifetime counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats
}

// Stats are the lifetime counters of a batch.
type Stats struct {
	DrawCalls        int
	VerticesDrawn    int
	VerticesUploaded int
	BuffersCreated   int
	ImplicitFlushes  int
}

// slot is one independent set of buffers with its own cursors.
// changeBegin is -1 while no vertex changed since the last upload.
type slot[T comparable] struct {
	buffers     []vertex_buffer.VertexBuffer[T]
	bufferIndex int
	vertexIndex int
	drawIndex   int
	changeBegin int
	changeEnd   int
}

func (s *slot[T]) reset() {
	s.bufferIndex = 0
	s.vertexIndex = 0
	s.drawIndex = 0
	s.clearChanges()
}

func (s *slot[T]) clearChanges() {
	s.changeBegin = -1
	s.changeEnd = 0
}

type vertexBatch[T comparable] struct {
	device   vertex_buffer.Device
	indices  *vertex_buffer.QuadIndexProvider
	registry *vertex_buffer.Registry
	tracker  *Tracker
	logger   *slog.Logger
	label    string

	size   int
	slots  []slot[T]
	active int
	cycle  uint64

	stats    Stats
	disposed bool
}

var _ VertexBatch[int32] = &vertexBatch[int32]{}

// NewVertexBatch creates a batch. Without WithQuadIndices its buffers draw vertices directly.
// Buffers are created on first use.
//
// Parameters:
//   - device: the device used by the batch's buffers
//   - options: configuration options
//
// Returns:
//   - VertexBatch[T]: the batch
func NewVertexBatch[T comparable](device vertex_buffer.Device, options ...VertexBatchOption) VertexBatch[T] {
	cfg := &batchConfig{
		bufferSize: DefaultBufferSize,
		slotCount:  DefaultSlotCount,
		label:      "Vertex Batch",
	}
	for _, opt := range options {
		opt(cfg)
	}

	if cfg.bufferSize <= 0 {
		panic(fmt.Errorf("%w: batch buffer size %d", vertex_buffer.ErrInvalidSize, cfg.bufferSize))
	}
	if cfg.slotCount <= 0 {
		panic(fmt.Errorf("%w: %d", ErrInvalidSlotCount, cfg.slotCount))
	}
	if cfg.indices != nil {
		cfg.bufferSize = vertex_buffer.QuadsFor(cfg.bufferSize) * vertex_buffer.VerticesPerQuad
		vertex_buffer.NewQuadTopology(cfg.indices).Validate(cfg.bufferSize)
	}

	b := &vertexBatch[T]{
		device:   device,
		indices:  cfg.indices,
		registry: cfg.registry,
		tracker:  cfg.tracker,
		logger:   common.Coalesce(cfg.logger, slog.New(slog.DiscardHandler)),
		label:    cfg.label,
		size:     cfg.bufferSize,
		slots:    make([]slot[T], cfg.slotCount),
	}
	for i := range b.slots {
		b.slots[i].clearChanges()
	}
	return b
}

// NewQuadBatch creates a batch whose buffers draw every 4 vertices as a quad through the shared index provider.
//
// Parameters:
//   - device: the device used by the batch's buffers
//   - indices: the renderer's quad index provider
//   - options: configuration options
//
// Returns:
//   - VertexBatch[T]: the batch
func NewQuadBatch[T comparable](device vertex_buffer.Device, indices *vertex_buffer.QuadIndexProvider, options ...VertexBatchOption) VertexBatch[T] {
	options = append(options, WithQuadIndices(indices))
	return NewVertexBatch[T](device, options...)
}

func (b *vertexBatch[T]) Size() int {
	return b.size
}

func (b *vertexBatch[T]) SlotCount() int {
	return len(b.slots)
}

func (b *vertexBatch[T]) ActiveSlot() int {
	return b.active
}

func (b *vertexBatch[T]) Cycle() uint64 {
	return b.cycle
}

func (b *vertexBatch[T]) BufferCount(slot int) int {
	if slot < 0 || slot >= len(b.slots) {
		panic(fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSlot, slot, len(b.slots)))
	}
	return len(b.slots[slot].buffers)
}

func (b *vertexBatch[T]) Disposed() bool {
	return b.disposed
}

func (b *vertexBatch[T]) Stats() Stats {
	return b.stats
}

func (b *vertexBatch[T]) Add(v T) error {
	b.checkAlive()
	if b.tracker != nil {
		if err := b.tracker.SetActive(b); err != nil {
			return err
		}
	}

	s := &b.slots[b.active]
	if s.vertexIndex >= b.size {
		if _, err := b.Draw(); err != nil {
			return err
		}
		s.bufferIndex++
		s.vertexIndex = 0
		s.drawIndex = 0
		s.clearChanges()
		b.stats.ImplicitFlushes++
		b.logger.Debug("vertex batch rotated buffer", "label", b.label, "slot", b.active, "buffer", s.bufferIndex)
	}

	buf := b.currentBuffer(s)
	if buf.SetVertex(s.vertexIndex, v) {
		if s.changeBegin < 0 {
			s.changeBegin = s.vertexIndex
		}
		s.changeEnd = s.vertexIndex + 1
	}
	s.vertexIndex++
	return nil
}

func (b *vertexBatch[T]) Draw() (int, error) {
	b.checkAlive()
	s := &b.slots[b.active]
	if s.vertexIndex == s.drawIndex {
		return 0, nil
	}

	buf := s.buffers[s.bufferIndex]
	if s.changeBegin >= 0 {
		if err := buf.UpdateRange(s.changeBegin, s.changeEnd); err != nil {
			return 0, err
		}
		b.stats.VerticesUploaded += s.changeEnd - s.changeBegin
		s.clearChanges()
	}
	if err := buf.DrawRange(s.drawIndex, s.vertexIndex); err != nil {
		return 0, err
	}

	n := s.vertexIndex - s.drawIndex
	s.drawIndex = s.vertexIndex
	b.stats.DrawCalls++
	b.stats.VerticesDrawn += n
	return n, nil
}

func (b *vertexBatch[T]) ResetCounters() {
	b.checkAlive()
	b.cycle++
	b.active = int(b.cycle % uint64(len(b.slots)))
	b.slots[b.active].reset()
}

func (b *vertexBatch[T]) Dispose() {
	if b.disposed {
		return
	}
	for i := range b.slots {
		for _, buf := range b.slots[i].buffers {
			buf.Dispose()
		}
		b.slots[i].buffers = nil
	}
	if b.tracker != nil {
		b.tracker.Release(b)
	}
	b.disposed = true
}

// currentBuffer returns the slot's active buffer, creating it on first use.
func (b *vertexBatch[T]) currentBuffer(s *slot[T]) vertex_buffer.VertexBuffer[T] {
	if s.bufferIndex < len(s.buffers) {
		return s.buffers[s.bufferIndex]
	}

	options := []vertex_buffer.VertexBufferOption{
		vertex_buffer.WithLabel(fmt.Sprintf("%s slot %d buffer %d", b.label, b.active, len(s.buffers))),
		vertex_buffer.WithRegistry(b.registry),
		vertex_buffer.WithLogger(b.logger),
	}
	var buf vertex_buffer.VertexBuffer[T]
	if b.indices != nil {
		buf = vertex_buffer.NewQuadVertexBuffer[T](b.device, b.indices, b.size, options...)
	} else {
		buf = vertex_buffer.NewVertexBuffer[T](b.device, b.size, options...)
	}
	s.buffers = append(s.buffers, buf)
	b.stats.BuffersCreated++
	return buf
}

func (b *vertexBatch[T]) checkAlive() {
	if b.disposed {
		panic(fmt.Errorf("%w: %s", vertex_buffer.ErrDisposed, b.label))
	}
}
