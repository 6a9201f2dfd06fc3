package renderer

import (
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBufferUsage maps vertex buffer usage flags onto WebGPU usage flags.
func wgpuBufferUsage(usage vertex_buffer.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage&vertex_buffer.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if usage&vertex_buffer.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if usage&vertex_buffer.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func wgpuIndexFormat(format vertex_buffer.IndexFormat) wgpu.IndexFormat {
	if format == vertex_buffer.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

var wgpuVertexFormats = map[vertex.Format]wgpu.VertexFormat{
	vertex.FormatFloat32:   wgpu.VertexFormatFloat32,
	vertex.FormatFloat32x2: wgpu.VertexFormatFloat32x2,
	vertex.FormatFloat32x3: wgpu.VertexFormatFloat32x3,
	vertex.FormatFloat32x4: wgpu.VertexFormatFloat32x4,
	vertex.FormatUint32:    wgpu.VertexFormatUint32,
}

// wgpuVertexLayout converts a vertex layout into the per-vertex buffer layout of a render pipeline.
func wgpuVertexLayout(layout vertex.Layout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, 0, len(layout.Attributes))
	for _, a := range layout.Attributes {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         wgpuVertexFormats[a.Format],
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		})
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(layout.Stride),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
