// Package vertex declares the GPU-exact vertex types streamed through vertex batches and the layout
// descriptors the renderer hands to the pipeline's input-assembly stage.
package vertex

import (
	"github.com/Carmen-Shannon/oxy-batch/common"
)

// Format identifies the scalar/vector format of a single vertex attribute.
type Format int

const (
	// FormatFloat32 is a single 32-bit float.
	FormatFloat32 Format = iota
	// FormatFloat32x2 is a vec2<f32>.
	FormatFloat32x2
	// FormatFloat32x3 is a vec3<f32>.
	FormatFloat32x3
	// FormatFloat32x4 is a vec4<f32>.
	FormatFloat32x4
	// FormatUint32 is a single u32.
	FormatUint32
)

// Size returns the size of the format in bytes.
func (f Format) Size() uintptr {
	switch f {
	case FormatFloat32, FormatUint32:
		return 4
	case FormatFloat32x2:
		return 8
	case FormatFloat32x3:
		return 12
	case FormatFloat32x4:
		return 16
	}
	return 0
}

// Attribute describes one member of a vertex as seen by the vertex shader.
type Attribute struct {
	Format   Format
	Offset   uintptr
	Location uint32
}

// Layout describes the memory layout of a vertex type. Stride and offsets must match the Go struct
// exactly; the staged CPU memory is uploaded byte for byte.
type Layout struct {
	Stride     uintptr
	Attributes []Attribute
}

// Vertex is implemented by every vertex type that can be described to a render pipeline.
type Vertex interface {
	comparable

	// Layout returns the memory layout of the vertex type.
	//
	// Returns:
	//   - Layout: the stride and attribute descriptors
	Layout() Layout
}

// Coloured2D is a flat-shaded 2D vertex.
// Size: 24 bytes.
type Coloured2D struct {
	Position [2]float32 // offset  0: position in normalized device coordinates
	Colour   [4]float32 // offset  8: linear RGBA colour
}

// Layout returns the memory layout of Coloured2D.
func (Coloured2D) Layout() Layout {
	return Layout{
		Stride: uintptr(common.SizeOf[Coloured2D]()),
		Attributes: []Attribute{
			{Format: FormatFloat32x2, Offset: 0, Location: 0},
			{Format: FormatFloat32x4, Offset: 8, Location: 1},
		},
	}
}

// Textured2D is a 2D vertex sampling a texture.
// Size: 32 bytes.
type Textured2D struct {
	Position [2]float32 // offset  0: position in normalized device coordinates
	TexCoord [2]float32 // offset  8: UV coordinate
	Colour   [4]float32 // offset 16: linear RGBA tint
}

// Layout returns the memory layout of Textured2D.
func (Textured2D) Layout() Layout {
	return Layout{
		Stride: uintptr(common.SizeOf[Textured2D]()),
		Attributes: []Attribute{
			{Format: FormatFloat32x2, Offset: 0, Location: 0},
			{Format: FormatFloat32x2, Offset: 8, Location: 1},
			{Format: FormatFloat32x4, Offset: 16, Location: 2},
		},
	}
}

// TexturedRect2D is a textured 2D vertex carrying the sub-rectangle of the texture it samples and
// the blend range used for edge smoothing.
// Size: 56 bytes.
type TexturedRect2D struct {
	Position    [2]float32 // offset  0
	TexCoord    [2]float32 // offset  8
	Colour      [4]float32 // offset 16
	TextureRect [4]float32 // offset 32: left, top, right, bottom in UV space
	BlendRange  [2]float32 // offset 48
}

// Layout returns the memory layout of TexturedRect2D.
func (TexturedRect2D) Layout() Layout {
	return Layout{
		Stride: uintptr(common.SizeOf[TexturedRect2D]()),
		Attributes: []Attribute{
			{Format: FormatFloat32x2, Offset: 0, Location: 0},
			{Format: FormatFloat32x2, Offset: 8, Location: 1},
			{Format: FormatFloat32x4, Offset: 16, Location: 2},
			{Format: FormatFloat32x4, Offset: 32, Location: 3},
			{Format: FormatFloat32x2, Offset: 48, Location: 4},
		},
	}
}

// QuadCorners returns the four corners of a rectangle of the given size centred on (cx, cy) and
// rotated by angle radians. Corners are in perimeter order (bottom-left, bottom-right, top-right,
// top-left) so that the quad index pattern [0 1 3 2 3 1] produces two triangles sharing the 1-3 diagonal.
//
// Parameters:
//   - cx, cy: centre of the rectangle
//   - w, h: width and height
//   - angle: rotation in radians
//
// Returns:
//   - [4][2]float32: the rotated corners
func QuadCorners(cx, cy, w, h, angle float32) [4][2]float32 {
	hw, hh := w/2, h/2
	local := [4][2]float32{
		{-hw, -hh},
		{hw, -hh},
		{hw, hh},
		{-hw, hh},
	}
	var out [4][2]float32
	for i, p := range local {
		x, y := common.Rotate2D(p[0], p[1], angle)
		out[i] = [2]float32{cx + x, cy + y}
	}
	return out
}
