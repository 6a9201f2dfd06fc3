package vertex_buffer

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-batch/common"
)

const (
	// VerticesPerQuad is the number of vertices describing one quad.
	VerticesPerQuad = 4
	// IndicesPerQuad is the number of indices drawing one quad as two triangles.
	IndicesPerQuad = 6
	// MaxQuads is the largest quad count addressable with 16-bit indices.
	MaxQuads = math.MaxUint16 / IndicesPerQuad
)

// GenerateQuadIndices builds the index pattern for the given amount of quads.
// Quad k is drawn as the triangles (4k, 4k+1, 4k+3) and (4k+2, 4k+3, 4k+1).
//
// Parameters:
//   - quads: the number of quads
//
// Returns:
//   - []uint16: 6*quads indices
func GenerateQuadIndices(quads int) []uint16 {
	indices := make([]uint16, quads*IndicesPerQuad)
	for k := range quads {
		base := uint16(k * VerticesPerQuad)
		i := k * IndicesPerQuad
		indices[i+0] = base + 0
		indices[i+1] = base + 1
		indices[i+2] = base + 3
		indices[i+3] = base + 2
		indices[i+4] = base + 3
		indices[i+5] = base + 1
	}
	return indices
}

// QuadIndexProvider owns the index buffer shared by every quad vertex buffer of a renderer.
// The buffer only grows: a request for more quads than currently covered regenerates and re-uploads
// the whole array into a new GPU buffer and releases the old one.
type QuadIndexProvider struct {
	device      Device
	logger      *slog.Logger
	buffer      GPUBuffer
	quads       int
	generations int
}

// NewQuadIndexProvider creates an empty provider. No GPU memory is allocated until the first Ensure or Bind.
//
// Parameters:
//   - device: the device used to create and bind the index buffer
//   - logger: the logger for regeneration events, nil discards
//
// Returns:
//   - *QuadIndexProvider: the provider
func NewQuadIndexProvider(device Device, logger *slog.Logger) *QuadIndexProvider {
	return &QuadIndexProvider{
		device: device,
		logger: common.Coalesce(logger, slog.New(slog.DiscardHandler)),
	}
}

// Quads returns the amount of quads the current index buffer covers.
func (p *QuadIndexProvider) Quads() int {
	return p.quads
}

// Capacity returns the amount of indices in the current index buffer.
func (p *QuadIndexProvider) Capacity() int {
	return p.quads * IndicesPerQuad
}

// Generations returns how many times the index buffer has been (re)built.
func (p *QuadIndexProvider) Generations() int {
	return p.generations
}

// Ensure grows the index buffer so it covers at least the given amount of quads.
// Requests above MaxQuads panic with ErrIndexRangeExceeded.
//
// Parameters:
//   - quads: the amount of quads that must be drawable
//
// Returns:
//   - error: an error wrapping ErrAllocationFailed or ErrUploadFailed
func (p *QuadIndexProvider) Ensure(quads int) error {
	if quads > MaxQuads {
		panic(fmt.Errorf("%w: %d quads requested, at most %d", ErrIndexRangeExceeded, quads, MaxQuads))
	}
	if quads <= p.quads {
		return nil
	}

	data := common.SliceToBytes(GenerateQuadIndices(quads))
	buf, err := p.device.CreateBuffer("Quad Index Buffer", uint64(len(data)), BufferUsageIndex|BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("%w: quad index buffer (%d quads): %w", ErrAllocationFailed, quads, err)
	}
	if err := p.device.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return fmt.Errorf("%w: quad index buffer (%d quads): %w", ErrUploadFailed, quads, err)
	}

	if p.buffer != nil {
		p.buffer.Release()
	}
	p.buffer = buf
	p.quads = quads
	p.generations++
	p.logger.Debug("quad index buffer regenerated", "quads", quads, "bytes", len(data))
	return nil
}

// Bind ensures the index buffer covers the given amount of quads and binds it as a 16-bit index buffer.
//
// Parameters:
//   - quads: the amount of quads that will be drawn
//
// Returns:
//   - error: an error if the index buffer could not be grown
func (p *QuadIndexProvider) Bind(quads int) error {
	if err := p.Ensure(quads); err != nil {
		return err
	}
	if p.buffer == nil {
		return nil
	}
	p.device.SetIndexBuffer(p.buffer, IndexFormatUint16, 0, p.buffer.Size())
	return nil
}

// Release frees the index buffer. A later Ensure or Bind builds a new one.
func (p *QuadIndexProvider) Release() {
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
	p.quads = 0
}
