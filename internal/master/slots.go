package master

import (
	"fmt"

	"yqhp/systest/pkg/types"
)

type slotCell struct {
	slot      types.ResultSlot
	published bool
}

// Slots is the fixed result region of a run, one cell per worker index.
// Cell i is written only by the goroutine joining worker i and read only
// after every worker has been joined, so no locking is needed.
type Slots struct {
	cells []slotCell
}

// NewSlots allocates n empty, unpublished cells.
func NewSlots(n int) *Slots {
	return &Slots{cells: make([]slotCell, n)}
}

// Len returns the number of cells.
func (s *Slots) Len() int {
	return len(s.cells)
}

// Publish writes the slot of worker index. Each cell is written once.
func (s *Slots) Publish(index int, slot types.ResultSlot) error {
	if index < 0 || index >= len(s.cells) {
		return fmt.Errorf("slot index %d out of range [0, %d)", index, len(s.cells))
	}
	if !slot.Valid() {
		return fmt.Errorf("invalid slot %+v for worker %d", slot, index)
	}
	cell := &s.cells[index]
	if cell.published {
		return fmt.Errorf("worker %d: %w", index, ErrSlotPublished)
	}
	cell.slot = slot
	cell.published = true
	return nil
}

// Get returns the slot of worker index and whether it was published.
func (s *Slots) Get(index int) (types.ResultSlot, bool) {
	if index < 0 || index >= len(s.cells) {
		return types.ResultSlot{}, false
	}
	cell := s.cells[index]
	return cell.slot, cell.published
}

// Collect returns the published slots in index order and the indices of
// the missing ones.
func (s *Slots) Collect() (published []types.ResultSlot, missing []int) {
	published = make([]types.ResultSlot, 0, len(s.cells))
	for i, cell := range s.cells {
		if !cell.published {
			missing = append(missing, i)
			continue
		}
		published = append(published, cell.slot)
	}
	return published, missing
}
