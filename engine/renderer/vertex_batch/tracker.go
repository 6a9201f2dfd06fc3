package vertex_batch

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-batch/common"
)

// Flushable is a batch the Tracker can draw on the caller's behalf.
type Flushable interface {
	Draw() (int, error)
}

// Tracker remembers which batch last received vertices. Switching to another batch draws the previous
// one first, so interleaved batches keep their submission order.
type Tracker struct {
	active  Flushable
	logger  *slog.Logger
	flushes int
}

// NewTracker creates a tracker with no active batch.
//
// Parameters:
//   - logger: the logger for flush failures, nil discards
//
// Returns:
//   - *Tracker: the tracker
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{logger: common.Coalesce(logger, slog.New(slog.DiscardHandler))}
}

// Active returns the batch that last received vertices, or nil.
func (t *Tracker) Active() Flushable {
	return t.active
}

// Flushes returns how many draws the tracker has issued on behalf of batches.
func (t *Tracker) Flushes() int {
	return t.flushes
}

// SetActive makes b the active batch, drawing the previously active batch if it differs.
// If that draw fails the previous batch stays active, so a later Flush retries it.
//
// Parameters:
//   - b: the batch about to receive vertices
//
// Returns:
//   - error: the draw error of the previous batch
func (t *Tracker) SetActive(b Flushable) error {
	if t.active == b {
		return nil
	}
	if t.active != nil {
		if err := t.draw(t.active); err != nil {
			return err
		}
	}
	t.active = b
	return nil
}

// Flush draws the active batch. The batch stays active.
//
// Returns:
//   - error: the draw error of the active batch
func (t *Tracker) Flush() error {
	if t.active == nil {
		return nil
	}
	return t.draw(t.active)
}

// Release forgets b if it is the active batch.
func (t *Tracker) Release(b Flushable) {
	if t.active == b {
		t.active = nil
	}
}

func (t *Tracker) draw(b Flushable) error {
	n, err := b.Draw()
	if err != nil {
		t.logger.Error("failed to flush vertex batch", "error", err)
		return err
	}
	if n > 0 {
		t.flushes++
	}
	return nil
}
