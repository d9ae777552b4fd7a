package scope

import (
	"fmt"

	"github.com/specialistvlad/namedim/internal/dimstack"
)

// Boundary moves the stack's first available slot while entered, reserving
// the slots above it for the caller.
type Boundary struct {
	session
	slot dimstack.Slot
	prev dimstack.Slot
}

// NewBoundary creates a boundary controller. slot must be negative, or
// dimstack.NoSlot to leave the boundary untouched.
func NewBoundary(stack *dimstack.Stack, slot dimstack.Slot) (*Boundary, error) {
	if slot > 0 {
		return nil, fmt.Errorf("%w: %d is not negative", dimstack.ErrInvalidBoundary, slot)
	}
	return &Boundary{session: session{stack: stack}, slot: slot}, nil
}

// Enter implements Controller. It fails if the slot is out of range for the
// stack.
func (b *Boundary) Enter() error {
	if b.depth == 0 && b.slot != dimstack.NoSlot {
		prev, err := b.stack.SetFirstAvailableSlot(b.slot)
		if err != nil {
			return err
		}
		b.prev = prev
	}
	b.enter()
	return nil
}

// Exit implements Controller.
func (b *Boundary) Exit() error {
	if b.depth == 0 {
		return ErrNotEntered
	}
	if b.depth == 1 && b.slot != dimstack.NoSlot {
		if _, err := b.stack.SetFirstAvailableSlot(b.prev); err != nil {
			return err
		}
	}
	b.exit()
	return nil
}

// Slot returns the boundary this controller installs.
func (b *Boundary) Slot() dimstack.Slot {
	return b.slot
}
