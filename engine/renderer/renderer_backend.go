package renderer

import (
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// wgpuRendererBackend is the surface of a GPU API driven by the renderer: surface and pipeline setup,
// frame recording, and the buffer and draw operations consumed by vertex buffers.
type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface and its multisample target.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the GPU render pipeline described by p and stores it on p.
	//
	// Parameters:
	//   - p: the pipeline description
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// SetPipeline sets a registered pipeline on the current render pass.
	//
	// Parameters:
	//   - p: the registered pipeline
	SetPipeline(p pipeline.Pipeline)

	// BeginFrame acquires the next swapchain texture, creates a command encoder and begins the
	// render pass. Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// CreateBuffer allocates a GPU buffer.
	CreateBuffer(label string, size uint64, usage vertex_buffer.BufferUsage) (vertex_buffer.GPUBuffer, error)

	// WriteBuffer queues a copy of data into buf at offset.
	WriteBuffer(buf vertex_buffer.GPUBuffer, offset uint64, data []byte) error

	// SetVertexBuffer binds buf to vertex buffer slot 0 of the current render pass.
	SetVertexBuffer(buf vertex_buffer.GPUBuffer, offset, size uint64)

	// SetIndexBuffer binds buf as the index buffer of the current render pass.
	SetIndexBuffer(buf vertex_buffer.GPUBuffer, format vertex_buffer.IndexFormat, offset, size uint64)

	// Draw records a non-indexed draw on the current render pass.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed records an indexed draw on the current render pass.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// Release frees every GPU object owned by the backend.
	Release()
}
