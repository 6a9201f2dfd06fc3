package vertex_buffer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-batch/common"
)

// Reclaimable is a resource holding GPU memory that can be released while idle and rebuilt later.
type Reclaimable interface {
	// InUse reports whether GPU memory is currently allocated.
	InUse() bool
	// LastUseFrame returns the frame the GPU memory was last uploaded to or bound in. Zero when not in use.
	LastUseFrame() uint64
	// Free releases the GPU memory, keeping the resource reusable.
	Free()
}

// Registry tracks the buffers that currently hold GPU memory so idle ones can be reclaimed.
// Buffers add themselves when they allocate and remove themselves when freed.
type Registry struct {
	buffers map[Reclaimable]struct{}
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - logger: the logger for reclamation events, nil discards
//
// Returns:
//   - *Registry: the registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		buffers: make(map[Reclaimable]struct{}),
		logger:  common.Coalesce(logger, slog.New(slog.DiscardHandler)),
	}
}

// Track adds a buffer to the registry.
func (r *Registry) Track(b Reclaimable) {
	r.buffers[b] = struct{}{}
}

// Untrack removes a buffer from the registry.
func (r *Registry) Untrack(b Reclaimable) {
	delete(r.buffers, b)
}

// Len returns the number of tracked buffers.
func (r *Registry) Len() int {
	return len(r.buffers)
}

// FreeUnused frees every tracked buffer that has not been used for more than maxIdleFrames frames.
//
// Parameters:
//   - currentFrame: the current frame index
//   - maxIdleFrames: the largest tolerated gap between the last use and the current frame
//
// Returns:
//   - int: the number of buffers freed
func (r *Registry) FreeUnused(currentFrame, maxIdleFrames uint64) int {
	freed := 0
	for b := range r.buffers {
		if !b.InUse() {
			delete(r.buffers, b)
			continue
		}
		last := b.LastUseFrame()
		if currentFrame > last && currentFrame-last > maxIdleFrames {
			b.Free()
			delete(r.buffers, b)
			freed++
		}
	}
	if freed > 0 {
		r.logger.Debug("reclaimed idle vertex buffers", "freed", freed, "frame", currentFrame, "remaining", len(r.buffers))
	}
	return freed
}
