package engine

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/profiler"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer"
	"github.com/Carmen-Shannon/oxy-batch/engine/window"
)

// Drawer records draw commands into the current frame. Drawers are invoked on the render goroutine
// between the renderer's BeginFrame and EndFrame, in ascending z-order.
type Drawer interface {
	// Draw records this drawer's geometry for the current frame.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: an error to be logged; the frame continues with the next drawer
	Draw(deltaTime float32) error
}

// DrawerFunc adapts a function to the Drawer interface.
type DrawerFunc func(deltaTime float32) error

// Draw calls f(deltaTime).
func (f DrawerFunc) Draw(deltaTime float32) error {
	return f(deltaTime)
}

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	logger   *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	drawersMu *sync.Mutex
	drawers   map[int]Drawer

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, the render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driven by the render loop.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for application logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called on the render goroutine after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddDrawer registers a drawer at the given z-index key, replacing any drawer already there.
	// Drawers are invoked in ascending key order each frame.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - d: the Drawer to register
	AddDrawer(key int, d Drawer)

	// RemoveDrawer removes the drawer at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the drawer to remove
	RemoveDrawer(key int)

	// Drawer retrieves the drawer registered at the given z-index key, or nil.
	//
	// Parameters:
	//   - key: the z-index of the drawer to retrieve
	//
	// Returns:
	//   - Drawer: the drawer at the key, or nil if not found
	Drawer(key int) Drawer

	// Run starts the tick and render loops and pumps window messages. Blocks until the window closes,
	// then stops both loops before returning.
	Run()

	// Quit signals all engine goroutines to stop. Run returns once they have exited.
	// Safe to call multiple times, including from a drawer; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		drawersMu:       &sync.Mutex{},
		drawers:         make(map[int]Drawer),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	e.logger = common.Coalesce(e.logger, slog.New(slog.DiscardHandler))
	e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil && width > 0 && height > 0 {
				e.renderer.Resize(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
	}
	e.signalQuit()
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines, each tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop. Listens for dynamic rate changes via tickRateChannel
// and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop on its own OS thread until quit.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame(dt)

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame runs one BeginFrame, drawers in z-order, EndFrame, Present cycle.
func (e *engine) renderFrame(dt float32) {
	if e.renderer == nil {
		return
	}
	if err := e.renderer.BeginFrame(); err != nil {
		e.logger.Warn("frame skipped", "err", err)
		return
	}

	for _, d := range e.sortedDrawers() {
		if err := d.Draw(dt); err != nil {
			e.logger.Error("drawer failed", "err", err)
		}
	}

	if err := e.renderer.EndFrame(); err != nil {
		e.logger.Error("end of frame failed", "err", err)
	}
	e.renderer.Present()

	if e.profilingEnabled {
		e.profiler.Tick(e.renderer.FrameStats())
	}
}

func (e *engine) sortedDrawers() []Drawer {
	e.drawersMu.Lock()
	defer e.drawersMu.Unlock()

	keys := make([]int, 0, len(e.drawers))
	for k := range e.drawers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Drawer, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.drawers[k])
	}
	return out
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddDrawer(key int, d Drawer) {
	e.drawersMu.Lock()
	defer e.drawersMu.Unlock()
	e.drawers[key] = d
}

func (e *engine) RemoveDrawer(key int) {
	e.drawersMu.Lock()
	defer e.drawersMu.Unlock()
	delete(e.drawers, key)
}

func (e *engine) Drawer(key int) Drawer {
	e.drawersMu.Lock()
	defer e.drawersMu.Unlock()
	return e.drawers[key]
}

// frameDuration converts a frame rate cap to the minimum frame duration; 0 means uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
