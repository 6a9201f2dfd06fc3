// Command quadstream streams thousands of animated quads through a double-buffered vertex batch.
//
//	quadstream -quads 50000 -batch-size 8000 -log-level debug
//
// P pauses the animation, Esc quits.
package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex_batch"
	"github.com/Carmen-Shannon/oxy-batch/engine/window"
)

//go:embed quad.wgsl
var quadSource string

const quadPipeline = "quad"

func main() {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	renderer.SetLogger(logger)

	win := window.NewWindow(
		window.WithTitle("oxy-batch: quadstream"),
		window.WithSize(cfg.Width, cfg.Height),
	)

	msaa, _ := cfg.SampleCount()
	layout := vertex.Coloured2D{}.Layout()
	r := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(cfg.PresentMode()),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(cfg.Software),
		renderer.WithPipelines(pipeline.NewPipeline(quadPipeline,
			pipeline.WithVertexShader(shader.NewShader("quad_vert", shader.ShaderTypeVertex, quadSource)),
			pipeline.WithFragmentShader(shader.NewShader("quad_frag", shader.ShaderTypeFragment, quadSource)),
			pipeline.WithVertexLayout(layout),
		)),
	)
	defer r.Release()

	pool := worker.NewDynamicWorkerPool(cfg.Workers, 256, time.Second)
	field := NewField(cfg.Quads, cfg.Seed, win.Width(), win.Height(), pool, cfg.ChunkSize)

	background := vertex_batch.NewQuadBatch[vertex.Coloured2D](r, r.QuadIndices(), append(r.BatchOptions(),
		vertex_batch.WithLabel("Background Batch"),
		vertex_batch.WithBufferSize(cfg.BatchSize),
		vertex_batch.WithSlotCount(cfg.Slots),
	)...)
	defer background.Dispose()
	sprites := vertex_batch.NewQuadBatch[vertex.Coloured2D](r, r.QuadIndices(), append(r.BatchOptions(),
		vertex_batch.WithLabel("Sprite Batch"),
		vertex_batch.WithBufferSize(cfg.BatchSize),
		vertex_batch.WithSlotCount(cfg.Slots),
	)...)
	defer sprites.Dispose()

	var grid []vertex.Coloured2D
	var paused atomic.Bool
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithLogger(logger),
		engine.WithProfiling(cfg.Profile),
		engine.WithRenderFrameLimit(cfg.FrameLimit),
		engine.WithDrawer(0, engine.DrawerFunc(func(float32) error {
			if err := r.UsePipeline(quadPipeline); err != nil {
				return err
			}
			grid = BackgroundGrid(grid, cfg.Background, win.Width(), win.Height())
			return stream(background, grid)
		})),
		engine.WithDrawer(1, engine.DrawerFunc(func(dt float32) error {
			if !paused.Load() {
				field.Step(dt, win.Width(), win.Height())
			}
			return stream(sprites, field.Vertices())
		})),
	)

	var lastStats atomic.Pointer[renderer.FrameStats]
	eng.SetRenderCallback(func(float32) {
		s := r.FrameStats()
		lastStats.Store(&s)
	})

	titleTicker := time.NewTicker(500 * time.Millisecond)
	defer titleTicker.Stop()
	win.SetUpdateCallback(func() {
		select {
		case <-titleTicker.C:
		default:
			return
		}
		if s := lastStats.Load(); s != nil {
			win.SetTitle(fmt.Sprintf("oxy-batch: quadstream | %d quads | frame %d | %d draws | %d KiB uploaded",
				field.Len(), s.Frame, s.DrawCalls, s.BytesUploaded/1024))
		}
	})
	win.SetKeyDownCallback(func(key uint32) {
		if key == common.KeyP {
			paused.Store(!paused.Load())
			logger.Info("animation toggled", "paused", paused.Load())
		}
	})

	logger.Info("starting quadstream",
		"quads", cfg.Quads,
		"background", cfg.Background,
		"batch_size", cfg.BatchSize,
		"slots", cfg.Slots,
		"workers", cfg.Workers,
	)
	eng.Run()

	logger.Info("batch totals",
		"sprites", fmt.Sprintf("%+v", sprites.Stats()),
		"background", fmt.Sprintf("%+v", background.Stats()),
	)
}

// stream starts a new cycle of b and adds every vertex to it. Vertices left undrawn are flushed by
// the next batch's first Add or at the end of the frame.
func stream(b vertex_batch.VertexBatch[vertex.Coloured2D], vertices []vertex.Coloured2D) error {
	b.ResetCounters()
	for _, v := range vertices {
		if err := b.Add(v); err != nil {
			return err
		}
	}
	return nil
}
