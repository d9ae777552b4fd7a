package scope

import (
	"errors"

	"github.com/specialistvlad/namedim/internal/dimstack"
)

// ErrNotEntered is returned by Exit on a controller that is not entered.
var ErrNotEntered = errors.New("scope: exit without matching enter")

// Controller is a re-entrant region of allocation.
type Controller interface {
	Enter() error
	Exit() error
}

// session tracks nesting depth and ownership of global-frame teardown. It is
// embedded in every controller.
type session struct {
	stack *dimstack.Stack
	depth int
	saved []dimstack.Binding
}

// enter runs after the controller's own 0 -> 1 work.
func (s *session) enter() {
	if s.depth == 0 && s.stack.ClaimOutermost(s) {
		global := s.stack.Global()
		for _, b := range s.saved {
			global.Write(b.Name, b.Slot)
		}
		s.saved = nil
	}
	s.depth++
}

// exit runs after the controller's own 1 -> 0 work. The caller has checked
// that the session is entered.
func (s *session) exit() {
	if s.depth == 1 && s.stack.ReleaseOutermost(s) {
		s.saved = append(s.saved, s.stack.Global().Drain()...)
	}
	s.depth--
}

// Depth returns the current nesting depth.
func (s *session) Depth() int {
	return s.depth
}

// Owner reports whether this controller currently owns global teardown.
func (s *session) Owner() bool {
	return s.stack.Outermost() == s
}

// Cleanup is a controller that only manages the global frame's lifetime.
type Cleanup struct {
	session
}

// NewCleanup creates a cleanup controller for stack.
func NewCleanup(stack *dimstack.Stack) *Cleanup {
	return &Cleanup{session: session{stack: stack}}
}

// Enter implements Controller.
func (c *Cleanup) Enter() error {
	c.enter()
	return nil
}

// Exit implements Controller.
func (c *Cleanup) Exit() error {
	if c.depth == 0 {
		return ErrNotEntered
	}
	c.exit()
	return nil
}

// Saved returns the global bindings drained by the last owning exit, in the
// order they will be restored.
func (c *Cleanup) Saved() []dimstack.Binding {
	return append([]dimstack.Binding(nil), c.saved...)
}
