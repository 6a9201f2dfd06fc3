package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer"
)

// Summary is the aggregate of the frames seen during one profiler interval.
type Summary struct {
	Frames           int
	FPS              float64
	DrawCalls        int
	BytesUploaded    int
	BuffersAllocated int
	BuffersReclaimed int
	HeapMB           float64
	AllocRateMB      float64
	GCCount          uint32
	MaxPauseUs       uint64
}

// Profiler tracks frame rate, renderer traffic and memory statistics for performance monitoring.
// Outputs a Summary to the logger at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	updateInterval time.Duration
	now            func() time.Time

	lastTime       time.Time
	current        Summary
	last           Summary
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second and the logger to a
// discarding one.
//
// Parameters:
//   - options: functional options configuring the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = common.Coalesce(p.logger, slog.New(slog.DiscardHandler))
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame with that frame's renderer statistics.
// Logs a Summary when the update interval has elapsed.
//
// Parameters:
//   - stats: the statistics of the frame just completed
//
// Returns:
//   - bool: true if a summary was logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.FrameStats) bool {
	p.current.Frames++
	p.current.DrawCalls += stats.DrawCalls
	p.current.BytesUploaded += stats.BytesUploaded
	p.current.BuffersAllocated += stats.BuffersAllocated
	p.current.BuffersReclaimed += stats.BuffersReclaimed

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	s := p.current
	s.FPS = float64(s.Frames) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	s.GCCount = p.memStats.NumGC
	s.MaxPauseUs = p.maxPauseUs()

	p.logger.Info("frame stats",
		"fps", s.FPS,
		"draw_calls_per_frame", s.DrawCalls/s.Frames,
		"upload_kb_per_frame", float64(s.BytesUploaded)/1024/float64(s.Frames),
		"buffers_allocated", s.BuffersAllocated,
		"buffers_reclaimed", s.BuffersReclaimed,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb", s.AllocRateMB,
		"gc", s.GCCount,
		"gc_max_pause_us", s.MaxPauseUs,
	)

	p.last = s
	p.current = Summary{}
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged Summary.
//
// Returns:
//   - Summary: the last summary, zero before the first interval elapses
func (p *Profiler) Last() Summary {
	return p.last
}

// maxPauseUs scans the GC pause ring buffer for the longest pause since the previous summary.
func (p *Profiler) maxPauseUs() uint64 {
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	var maxPause uint64
	for i := startIdx; i < gcCount; i++ {
		if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPause {
			maxPause = pause
		}
	}
	return maxPause
}
