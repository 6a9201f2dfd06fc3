package vertex_batch

import "errors"

var (
	// ErrInvalidSlotCount is raised when a batch is configured with fewer than one buffer slot.
	ErrInvalidSlotCount = errors.New("vertex_batch: slot count must be positive")

	// ErrInvalidSlot is raised when a slot outside [0, SlotCount()) is queried.
	ErrInvalidSlot = errors.New("vertex_batch: slot out of range")
)
