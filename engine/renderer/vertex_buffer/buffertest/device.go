// Package buffertest provides a recording vertex_buffer.Device for tests. It keeps every created buffer's
// bytes in memory and records writes, binds and draws so callers can assert on the exact GPU traffic.
package buffertest

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
)

// Buffer is an in-memory GPU buffer.
type Buffer struct {
	ID       int
	Label    string
	Usage    vertex_buffer.BufferUsage
	Bytes    []byte
	Released bool
}

var _ vertex_buffer.GPUBuffer = &Buffer{}

func (b *Buffer) Size() uint64 {
	return uint64(len(b.Bytes))
}

func (b *Buffer) Release() {
	if b.Released {
		panic(fmt.Sprintf("buffertest: buffer %d (%s) released twice", b.ID, b.Label))
	}
	b.Released = true
}

// Write is one recorded WriteBuffer call.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Size   int
}

// Draw is one recorded Draw or DrawIndexed call together with the buffers bound when it was issued.
type Draw struct {
	Indexed       bool
	Count         uint32
	First         uint32
	Vertices      *Buffer
	Indices       *Buffer
	IndexFormat   vertex_buffer.IndexFormat
	BaseVertex    int32
	InstanceCount uint32
}

// Device is a recording vertex_buffer.Device.
type Device struct {
	Frame uint64

	// CreateErr and WriteErr, when set, are returned by every CreateBuffer and WriteBuffer call.
	CreateErr error
	WriteErr  error

	Buffers []*Buffer
	Writes  []Write
	Draws   []Draw

	vertices    *Buffer
	indices     *Buffer
	indexFormat vertex_buffer.IndexFormat
}

var _ vertex_buffer.Device = &Device{}

// NewDevice creates a recording device positioned at frame 1.
func NewDevice() *Device {
	return &Device{Frame: 1}
}

func (d *Device) CreateBuffer(label string, size uint64, usage vertex_buffer.BufferUsage) (vertex_buffer.GPUBuffer, error) {
	if d.CreateErr != nil {
		return nil, d.CreateErr
	}
	if size%4 != 0 {
		return nil, fmt.Errorf("buffertest: size %d is not 4-byte aligned", size)
	}
	b := &Buffer{ID: len(d.Buffers), Label: label, Usage: usage, Bytes: make([]byte, size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf vertex_buffer.GPUBuffer, offset uint64, data []byte) error {
	if d.WriteErr != nil {
		return d.WriteErr
	}
	b := d.live(buf)
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("buffertest: write of %d bytes at %d is not 4-byte aligned", len(data), offset)
	}
	if offset+uint64(len(data)) > b.Size() {
		return fmt.Errorf("buffertest: write of %d bytes at %d overflows %d byte buffer", len(data), offset, b.Size())
	}
	copy(b.Bytes[offset:], data)
	d.Writes = append(d.Writes, Write{Buffer: b, Offset: offset, Size: len(data)})
	return nil
}

func (d *Device) SetVertexBuffer(buf vertex_buffer.GPUBuffer, _, _ uint64) {
	d.vertices = d.live(buf)
}

func (d *Device) SetIndexBuffer(buf vertex_buffer.GPUBuffer, format vertex_buffer.IndexFormat, _, _ uint64) {
	d.indices = d.live(buf)
	d.indexFormat = format
}

func (d *Device) Draw(vertexCount, instanceCount, firstVertex, _ uint32) {
	d.Draws = append(d.Draws, Draw{
		Count:         vertexCount,
		First:         firstVertex,
		Vertices:      d.vertices,
		InstanceCount: instanceCount,
	})
}

func (d *Device) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, _ uint32) {
	d.Draws = append(d.Draws, Draw{
		Indexed:       true,
		Count:         indexCount,
		First:         firstIndex,
		Vertices:      d.vertices,
		Indices:       d.indices,
		IndexFormat:   d.indexFormat,
		BaseVertex:    baseVertex,
		InstanceCount: instanceCount,
	})
}

func (d *Device) FrameIndex() uint64 {
	return d.Frame
}

// Reset forgets recorded writes and draws. Created buffers are kept.
func (d *Device) Reset() {
	d.Writes = nil
	d.Draws = nil
}

// Live returns the number of created buffers that have not been released.
func (d *Device) Live() int {
	n := 0
	for _, b := range d.Buffers {
		if !b.Released {
			n++
		}
	}
	return n
}

// BytesWritten returns the total amount of bytes written since the last Reset.
func (d *Device) BytesWritten() int {
	n := 0
	for _, w := range d.Writes {
		n += w.Size
	}
	return n
}

func (d *Device) live(buf vertex_buffer.GPUBuffer) *Buffer {
	b, ok := buf.(*Buffer)
	if !ok {
		panic(fmt.Sprintf("buffertest: foreign buffer %T", buf))
	}
	if b.Released {
		panic(fmt.Sprintf("buffertest: buffer %d (%s) used after release", b.ID, b.Label))
	}
	return b
}
