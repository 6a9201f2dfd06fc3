package main

import (
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-batch/common"
	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
	"github.com/chewxy/math32"
)

// quad is one animated rectangle in pixel space.
type quad struct {
	x, y   float32
	vx, vy float32
	size   float32
	angle  float32
	spin   float32
	phase  float32
	from   [4]float32
	to     [4]float32
}

// Field animates a set of quads bouncing inside the window and expands them to vertices.
// Step splits the work into chunks run on a worker pool; the vertices are then consumed on the
// render goroutine.
type Field struct {
	quads     []quad
	vertices  []vertex.Coloured2D
	pool      worker.DynamicWorkerPool
	chunkSize int
	time      float32
}

// NewField creates count quads at random positions inside a width×height area.
// A nil pool runs every chunk on the calling goroutine.
func NewField(count int, seed uint64, width, height int, pool worker.DynamicWorkerPool, chunkSize int) *Field {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f := &Field{
		quads:     make([]quad, count),
		vertices:  make([]vertex.Coloured2D, count*4),
		pool:      pool,
		chunkSize: max(chunkSize, 1),
	}
	w, h := float32(width), float32(height)
	for i := range f.quads {
		speed := 40 + rng.Float32()*160
		heading := rng.Float32() * 2 * math32.Pi
		f.quads[i] = quad{
			x:     rng.Float32() * w,
			y:     rng.Float32() * h,
			vx:    speed * math32.Cos(heading),
			vy:    speed * math32.Sin(heading),
			size:  4 + rng.Float32()*12,
			angle: rng.Float32() * 2 * math32.Pi,
			spin:  (rng.Float32() - 0.5) * 4,
			phase: rng.Float32() * 2 * math32.Pi,
			from:  [4]float32{rng.Float32(), rng.Float32(), 1, 0.9},
			to:    [4]float32{1, rng.Float32(), rng.Float32(), 0.9},
		}
	}
	return f
}

// Len returns the number of quads.
func (f *Field) Len() int {
	return len(f.quads)
}

// Vertices returns four vertices per quad as produced by the last Step.
func (f *Field) Vertices() []vertex.Coloured2D {
	return f.vertices
}

// Step advances the animation by dt seconds and regenerates the vertices for a width×height surface.
func (f *Field) Step(dt float32, width, height int) {
	f.time += dt
	if f.pool == nil {
		for begin := 0; begin < len(f.quads); begin += f.chunkSize {
			f.stepChunk(begin, min(begin+f.chunkSize, len(f.quads)), dt, width, height)
		}
		return
	}

	// Per-step barrier; the pool's own Wait blocks until workers idle out.
	var wg sync.WaitGroup
	id := 0
	for begin := 0; begin < len(f.quads); begin += f.chunkSize {
		end := min(begin+f.chunkSize, len(f.quads))
		wg.Add(1)
		b := begin
		f.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				f.stepChunk(b, end, dt, width, height)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

func (f *Field) stepChunk(begin, end int, dt float32, width, height int) {
	w, h := float32(width), float32(height)
	for i := begin; i < end; i++ {
		q := &f.quads[i]
		q.x += q.vx * dt
		q.y += q.vy * dt
		if q.x < 0 || q.x > w {
			q.vx = -q.vx
			q.x = math32.Max(0, math32.Min(q.x, w))
		}
		if q.y < 0 || q.y > h {
			q.vy = -q.vy
			q.y = math32.Max(0, math32.Min(q.y, h))
		}
		q.angle += q.spin * dt

		t := 0.5 + 0.5*math32.Sin(f.time*2+q.phase)
		colour := [4]float32{
			common.Lerp(q.from[0], q.to[0], t),
			common.Lerp(q.from[1], q.to[1], t),
			common.Lerp(q.from[2], q.to[2], t),
			common.Lerp(q.from[3], q.to[3], t),
		}
		writeQuad(f.vertices[i*4:i*4+4], q.x, q.y, q.size, q.size, q.angle, colour, width, height)
	}
}

// BackgroundGrid lays out a grid of count dim tiles covering the surface into dst, growing it only
// when its capacity is too small. Its vertices do not change between frames of the same size. A
// zero-sized surface lays out nothing.
func BackgroundGrid(dst []vertex.Coloured2D, count, width, height int) []vertex.Coloured2D {
	if count <= 0 || width <= 0 || height <= 0 {
		return dst[:0]
	}
	cols := int(math32.Ceil(math32.Sqrt(float32(count) * float32(width) / float32(height))))
	rows := (count + cols - 1) / cols
	cw, ch := float32(width)/float32(cols), float32(height)/float32(rows)

	out := dst[:0]
	if cap(out) < count*4 {
		out = make([]vertex.Coloured2D, count*4)
	}
	out = out[:count*4]
	for i := range count {
		col, row := i%cols, i/cols
		shade := 0.12 + 0.06*float32((col+row)%2)
		writeQuad(out[i*4:i*4+4],
			(float32(col)+0.5)*cw, (float32(row)+0.5)*ch,
			cw*0.95, ch*0.95, 0,
			[4]float32{shade, shade, shade + 0.04, 1},
			width, height)
	}
	return out
}

// writeQuad fills dst with the four corners of a rotated rectangle centred on (cx, cy) in pixels.
func writeQuad(dst []vertex.Coloured2D, cx, cy, w, h, angle float32, colour [4]float32, width, height int) {
	for j, c := range vertex.QuadCorners(cx, cy, w, h, angle) {
		dst[j] = vertex.Coloured2D{
			Position: common.PixelToNDC(c[0], c[1], width, height),
			Colour:   colour,
		}
	}
}
