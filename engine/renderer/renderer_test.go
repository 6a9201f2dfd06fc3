package renderer_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_buffer/buffertest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct{}

func (fakeSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (fakeSurface) Width() int                                 { return 640 }
func (fakeSurface) Height() int                                { return 480 }

// fakeBackend records frame and pipeline calls and keeps buffers and draws in a buffertest.Device.
type fakeBackend struct {
	*buffertest.Device

	configured  [][2]int
	presentMode renderer.PresentMode
	registered  []string
	bound       []string
	drawsAtBind []int
	begins      int
	ends        int
	presents    int
	released    bool

	beginErr    error
	registerErr error
}

var _ renderer.RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{Device: buffertest.NewDevice()}
}

func (f *fakeBackend) ConfigureSurface(width, height int) {
	f.configured = append(f.configured, [2]int{width, height})
}

func (f *fakeBackend) SetPresentMode(mode renderer.PresentMode) {
	f.presentMode = mode
}

func (f *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, p.PipelineKey())
	return nil
}

func (f *fakeBackend) SetPipeline(p pipeline.Pipeline) {
	f.bound = append(f.bound, p.PipelineKey())
	f.drawsAtBind = append(f.drawsAtBind, len(f.Draws))
}

func (f *fakeBackend) BeginFrame() error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.begins++
	return nil
}

func (f *fakeBackend) EndFrame() error {
	f.ends++
	return nil
}

func (f *fakeBackend) Present() {
	f.presents++
}

func (f *fakeBackend) Release() {
	f.released = true
}

func newTestRenderer(t *testing.T, opts ...renderer.RendererBuilderOption) (renderer.Renderer, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, fakeSurface{}, append(opts, renderer.WithBackend(backend))...)
	return r, backend
}

func colour(i int) vertex.Coloured2D {
	return vertex.Coloured2D{Position: [2]float32{float32(i), 0}, Colour: [4]float32{1, 0, 0, 1}}
}

func TestNewRendererConfiguresBackend(t *testing.T) {
	r, backend := newTestRenderer(t, renderer.WithPresentMode(renderer.PresentModeVSync))

	assert.Equal(t, [][2]int{{640, 480}}, backend.configured)
	assert.Equal(t, renderer.PresentModeVSync, backend.presentMode)
	assert.Zero(t, r.FrameIndex())
	assert.NotNil(t, r.QuadIndices())
	assert.NotNil(t, r.Buffers())
	assert.NotNil(t, r.BatchTracker())

	r.Resize(800, 600)
	assert.Equal(t, [2]int{800, 600}, backend.configured[1])

	r.Release()
	assert.True(t, backend.released)
}

func TestFrameLifecycle(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.ErrorIs(t, r.EndFrame(), renderer.ErrNoFrame)
	require.NoError(t, r.BeginFrame())
	assert.Equal(t, uint64(1), r.FrameIndex())
	require.ErrorIs(t, r.BeginFrame(), renderer.ErrFrameInProgress)
	require.NoError(t, r.EndFrame())
	r.Present()

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())

	assert.Equal(t, uint64(2), r.FrameIndex())
	assert.Equal(t, 2, backend.begins)
	assert.Equal(t, 2, backend.ends)
	assert.Equal(t, 1, backend.presents)
	assert.Equal(t, uint64(2), r.FrameStats().Frame)
}

func TestBeginFrameFailureDoesNotAdvance(t *testing.T) {
	r, backend := newTestRenderer(t)
	backend.beginErr = errors.New("surface lost")

	assert.Error(t, r.BeginFrame())
	assert.Zero(t, r.FrameIndex())
	assert.ErrorIs(t, r.EndFrame(), renderer.ErrNoFrame)
}

func TestDrawOutsideFrameIsIgnored(t *testing.T) {
	r, backend := newTestRenderer(t)

	r.Draw(3, 1, 0, 0)
	r.DrawIndexed(6, 1, 0, 0, 0)

	assert.Empty(t, backend.Draws)
}

func TestEndFrameFlushesActiveBatch(t *testing.T) {
	r, backend := newTestRenderer(t)
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](r, r.BatchOptions()...)

	require.NoError(t, r.BeginFrame())
	for i := range 3 {
		require.NoError(t, b.Add(colour(i)))
	}
	require.NoError(t, r.EndFrame())

	require.Len(t, backend.Draws, 1)
	assert.Equal(t, uint32(3), backend.Draws[0].Count)
	stats := r.FrameStats()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Equal(t, 3*24, stats.BytesUploaded)
	assert.Equal(t, 1, stats.BuffersAllocated)
	assert.Equal(t, 1, r.BatchTracker().Flushes())
}

func TestQuadBatchSharesRendererIndices(t *testing.T) {
	r, backend := newTestRenderer(t)
	a := vertex_batch.NewQuadBatch[vertex.Coloured2D](r, r.QuadIndices(), append(r.BatchOptions(), vertex_batch.WithBufferSize(8))...)
	b := vertex_batch.NewQuadBatch[vertex.Coloured2D](r, r.QuadIndices(), append(r.BatchOptions(), vertex_batch.WithBufferSize(8))...)

	require.NoError(t, r.BeginFrame())
	for i := range 4 {
		require.NoError(t, a.Add(colour(i)))
	}
	for i := range 4 {
		require.NoError(t, b.Add(colour(i)))
	}
	require.NoError(t, r.EndFrame())

	require.Len(t, backend.Draws, 2)
	assert.True(t, backend.Draws[0].Indexed)
	assert.Same(t, backend.Draws[0].Indices, backend.Draws[1].Indices)
	assert.Equal(t, uint64(1), r.QuadIndices().Generations())
}

func TestIdleBuffersAreReclaimed(t *testing.T) {
	r, _ := newTestRenderer(t, renderer.WithReclaimPolicy(2, 1))
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](r, r.BatchOptions()...)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, b.Add(colour(0)))
	require.NoError(t, r.EndFrame())
	b.ResetCounters()
	require.Equal(t, 1, r.Buffers().Len())

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())
	assert.Zero(t, r.FrameStats().BuffersReclaimed, "one idle frame is within the limit")

	for range 2 {
		require.NoError(t, r.BeginFrame())
		require.NoError(t, r.EndFrame())
	}
	assert.Equal(t, 1, r.FrameStats().BuffersReclaimed)
	assert.Zero(t, r.Buffers().Len())
}

func TestPipelineRegistration(t *testing.T) {
	quad := pipeline.NewPipeline("quad")
	r, backend := newTestRenderer(t, renderer.WithPipelines(quad))

	require.NoError(t, r.RegisterPipelines(quad, pipeline.NewPipeline("sprite")))
	assert.Equal(t, []string{"quad", "sprite"}, backend.registered)
	assert.Same(t, quad, r.Pipeline("quad"))
	assert.Len(t, r.Pipelines(), 2)
	assert.Nil(t, r.Pipeline("missing"))

	assert.ErrorIs(t, r.UsePipeline("quad"), renderer.ErrNoFrame)
	require.NoError(t, r.BeginFrame())
	assert.ErrorIs(t, r.UsePipeline("missing"), renderer.ErrPipelineNotFound)
	require.NoError(t, r.UsePipeline("quad"))
	assert.Equal(t, []string{"quad"}, backend.bound)

	backend.registerErr = errors.New("bad shader")
	assert.Error(t, r.RegisterPipelines(pipeline.NewPipeline("broken")))
	assert.Nil(t, r.Pipeline("broken"))
}

func TestUsePipelineDrawsPendingVerticesFirst(t *testing.T) {
	r, backend := newTestRenderer(t, renderer.WithPipelines(pipeline.NewPipeline("a"), pipeline.NewPipeline("b")))
	a := vertex_batch.NewVertexBatch[vertex.Coloured2D](r, r.BatchOptions()...)
	b := vertex_batch.NewVertexBatch[vertex.Coloured2D](r, r.BatchOptions()...)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.UsePipeline("a"))
	for i := range 4 {
		require.NoError(t, a.Add(colour(i)))
	}
	require.NoError(t, r.UsePipeline("b"))
	for i := range 4 {
		require.NoError(t, b.Add(colour(i)))
	}
	require.NoError(t, r.UsePipeline("a"))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, []string{"a", "b", "a"}, backend.bound)
	assert.Equal(t, []int{0, 1, 2}, backend.drawsAtBind, "each batch is drawn before the next pipeline is bound")
	require.Len(t, backend.Draws, 2)
	assert.Equal(t, 2, r.FrameStats().DrawCalls)
}
