package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// DefaultReclaimInterval is how often, in frames, idle vertex buffers are looked for.
	DefaultReclaimInterval = 60
	// DefaultMaxIdleFrames is how many frames a vertex buffer may go unused before its GPU memory is freed.
	DefaultMaxIdleFrames = 300
)

var (
	// ErrPipelineNotFound is returned when a pipeline key has not been registered.
	ErrPipelineNotFound = errors.New("renderer: pipeline not found")

	// ErrNoFrame is returned when a frame operation is called outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrFrameInProgress is returned when BeginFrame is called before the previous frame ended.
	ErrFrameInProgress = errors.New("renderer: frame already in progress")
)

// Surface is the presentation target a renderer draws into, typically a window.
type Surface interface {
	// SurfaceDescriptor returns the platform-specific descriptor used to create the WebGPU surface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	// Width returns the surface width in pixels.
	Width() int
	// Height returns the surface height in pixels.
	Height() int
}

// FrameStats counts the GPU traffic of one frame.
type FrameStats struct {
	Frame            uint64
	DrawCalls        int
	BytesUploaded    int
	BuffersAllocated int
	BuffersReclaimed int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache    map[string]pipeline.Pipeline
	pendingPipelines []pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	logger      *slog.Logger

	quadIndices *vertex_buffer.QuadIndexProvider
	registry    *vertex_buffer.Registry
	tracker     *vertex_batch.Tracker

	frame           uint64
	inFrame         bool
	stats           FrameStats
	lastStats       FrameStats
	reclaimInterval uint64
	maxIdleFrames   uint64

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device, the frame's command encoder and render pass, and the resources
// shared by every streamed vertex batch: the quad index buffer, the registry of live vertex buffers and
// the tracker of the active batch. It implements vertex_buffer.Device, so buffers and batches created
// against it allocate, upload and draw through the current frame.
//
// A Renderer is driven from a single OS-thread-locked goroutine; only the pipeline cache is safe for
// concurrent use.
type Renderer interface {
	vertex_buffer.Device

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU objects of one or more pipelines via the backend, then caches
	// them by PipelineKey. Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// UsePipeline sets the cached pipeline on the current render pass. Subsequent batch draws use it.
	// The active batch is drawn first, so vertices added under the previous pipeline keep it.
	//
	// Parameters:
	//   - key: the unique identifier of a registered Pipeline
	//
	// Returns:
	//   - error: ErrPipelineNotFound, ErrNoFrame, or the draw error of the active batch
	UsePipeline(key string) error

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// BeginFrame advances the frame index, acquires the swapchain texture and begins the render pass.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// EndFrame draws whatever the active batch has not drawn yet, ends the render pass, submits the
	// command buffer and, every reclaim interval, frees vertex buffers idle for too long.
	// Does not present the surface; call Present after EndFrame.
	//
	// Returns:
	//   - error: the flush or submission error, if any
	EndFrame() error

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// QuadIndices returns the quad index provider shared by every quad buffer of this renderer.
	//
	// Returns:
	//   - *vertex_buffer.QuadIndexProvider: the shared provider
	QuadIndices() *vertex_buffer.QuadIndexProvider

	// Buffers returns the registry of vertex buffers holding GPU memory.
	//
	// Returns:
	//   - *vertex_buffer.Registry: the registry
	Buffers() *vertex_buffer.Registry

	// BatchTracker returns the tracker of the batch that last received vertices.
	//
	// Returns:
	//   - *vertex_batch.Tracker: the tracker
	BatchTracker() *vertex_batch.Tracker

	// BatchOptions returns the options wiring a new batch to this renderer's registry, tracker and logger.
	//
	// Returns:
	//   - []vertex_batch.VertexBatchOption: the options
	BatchOptions() []vertex_batch.VertexBatchOption

	// FrameStats returns the statistics of the last completed frame.
	//
	// Returns:
	//   - FrameStats: the statistics
	FrameStats() FrameStats

	// Release frees the quad index buffer and every backend GPU object.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer drawing into the given surface.
// Failing to set up the GPU device is fatal and panics.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - surface: the presentation target, typically the engine window
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:              &sync.Mutex{},
		pipelineCache:   make(map[string]pipeline.Pipeline),
		backendType:     backendType,
		logger:          Logger(),
		reclaimInterval: DefaultReclaimInterval,
		maxIdleFrames:   DefaultMaxIdleFrames,
		clearColor:      wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.clearColor, r.logger)
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(surface.Width(), surface.Height())

	r.quadIndices = vertex_buffer.NewQuadIndexProvider(r, r.logger)
	r.registry = vertex_buffer.NewRegistry(r.logger)
	r.tracker = vertex_batch.NewTracker(r.logger)

	if err := r.RegisterPipelines(r.pendingPipelines...); err != nil {
		panic(err)
	}
	r.pendingPipelines = nil
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("renderer: registering pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) UsePipeline(key string) error {
	if !r.inFrame {
		return fmt.Errorf("%w: UsePipeline(%q)", ErrNoFrame, key)
	}
	p := r.Pipeline(key)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, key)
	}
	if err := r.tracker.Flush(); err != nil {
		return fmt.Errorf("renderer: flushing before pipeline %q: %w", key, err)
	}
	r.backend.SetPipeline(p)
	return nil
}

func (r *renderer) BeginFrame() error {
	if r.inFrame {
		return ErrFrameInProgress
	}
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.frame++
	r.inFrame = true
	r.stats = FrameStats{Frame: r.frame}
	return nil
}

func (r *renderer) EndFrame() error {
	if !r.inFrame {
		return ErrNoFrame
	}
	flushErr := r.tracker.Flush()
	endErr := r.backend.EndFrame()
	r.inFrame = false

	if r.reclaimInterval > 0 && r.frame%r.reclaimInterval == 0 {
		r.stats.BuffersReclaimed = r.registry.FreeUnused(r.frame, r.maxIdleFrames)
	}
	r.lastStats = r.stats
	return errors.Join(flushErr, endErr)
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) QuadIndices() *vertex_buffer.QuadIndexProvider {
	return r.quadIndices
}

func (r *renderer) Buffers() *vertex_buffer.Registry {
	return r.registry
}

func (r *renderer) BatchTracker() *vertex_batch.Tracker {
	return r.tracker
}

func (r *renderer) BatchOptions() []vertex_batch.VertexBatchOption {
	return []vertex_batch.VertexBatchOption{
		vertex_batch.WithRegistry(r.registry),
		vertex_batch.WithTracker(r.tracker),
		vertex_batch.WithLogger(r.logger),
	}
}

func (r *renderer) FrameStats() FrameStats {
	return r.lastStats
}

func (r *renderer) Release() {
	r.quadIndices.Release()
	r.backend.Release()
}

func (r *renderer) FrameIndex() uint64 {
	return r.frame
}

func (r *renderer) CreateBuffer(label string, size uint64, usage vertex_buffer.BufferUsage) (vertex_buffer.GPUBuffer, error) {
	buf, err := r.backend.CreateBuffer(label, size, usage)
	if err != nil {
		return nil, err
	}
	r.stats.BuffersAllocated++
	return buf, nil
}

func (r *renderer) WriteBuffer(buf vertex_buffer.GPUBuffer, offset uint64, data []byte) error {
	if err := r.backend.WriteBuffer(buf, offset, data); err != nil {
		return err
	}
	r.stats.BytesUploaded += len(data)
	return nil
}

func (r *renderer) SetVertexBuffer(buf vertex_buffer.GPUBuffer, offset, size uint64) {
	if r.outsideFrame("SetVertexBuffer") {
		return
	}
	r.backend.SetVertexBuffer(buf, offset, size)
}

func (r *renderer) SetIndexBuffer(buf vertex_buffer.GPUBuffer, format vertex_buffer.IndexFormat, offset, size uint64) {
	if r.outsideFrame("SetIndexBuffer") {
		return
	}
	r.backend.SetIndexBuffer(buf, format, offset, size)
}

func (r *renderer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if r.outsideFrame("Draw") {
		return
	}
	r.backend.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	r.stats.DrawCalls++
}

func (r *renderer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if r.outsideFrame("DrawIndexed") {
		return
	}
	r.backend.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	r.stats.DrawCalls++
}

// outsideFrame reports, and logs, pass commands issued while no render pass is open.
func (r *renderer) outsideFrame(op string) bool {
	if r.inFrame {
		return false
	}
	r.logger.Warn("render pass command outside of a frame ignored", "op", op, "frame", r.frame)
	return true
}
