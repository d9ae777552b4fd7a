package dimstack

import (
	"fmt"
	"log/slog"
	"slices"
)

// Observer is notified after a conversion has bound names of a class.
type Observer interface {
	ObserveBindings(class VisibilityClass, names []Name)
}

// Stack is the allocator: a stack of frames whose bottom is the global frame.
// It is not safe for concurrent use; scopes must nest on one goroutine.
type Stack struct {
	frames         []*Frame
	firstAvailable Slot
	outermost      any
	observers      []*observerEntry
	logger         *slog.Logger
}

type observerEntry struct {
	obs Observer
}

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets the logger used for debug tracing of allocations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFirstAvailableSlot sets the initial boundary. New logs and drops an
// invalid value; use SetFirstAvailableSlot to get an error.
func WithFirstAvailableSlot(slot Slot) Option {
	return func(s *Stack) {
		s.firstAvailable = slot
	}
}

// New creates a Stack holding only the global frame.
func New(opts ...Option) *Stack {
	s := &Stack{
		frames: []*Frame{NewFrame(nil, nil, false)},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validBoundary(s.firstAvailable) {
		s.logger.Warn("Ignoring invalid first available slot.", "slot", int(s.firstAvailable), "min_slot", int(MinSlot))
		s.firstAvailable = NoSlot
	}
	return s
}

// Push makes frame the current frame.
func (s *Stack) Push(frame *Frame) {
	s.frames = append(s.frames, frame)
	s.logger.Debug("Frame pushed.", "depth", len(s.frames), "parents", len(frame.parents), "iter_parents", len(frame.iterParents), "keep", frame.keep)
}

// Pop removes and returns the current frame. Popping the global frame is a
// nesting bug and panics.
func (s *Stack) Pop() *Frame {
	if len(s.frames) <= 1 {
		panic("dimstack: cannot pop the global frame")
	}
	top := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	s.logger.Debug("Frame popped.", "depth", len(s.frames), "bindings", top.Len())
	return top
}

// Current returns the innermost frame.
func (s *Stack) Current() *Frame {
	return s.frames[len(s.frames)-1]
}

// Global returns the global frame.
func (s *Stack) Global() *Frame {
	return s.frames[0]
}

// Len returns the number of frames, including the global frame.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Top returns up to n frames from the top of the stack, most recent first.
func (s *Stack) Top(n int) []*Frame {
	if n <= 0 {
		return nil
	}
	if n > len(s.frames) {
		n = len(s.frames)
	}
	top := slices.Clone(s.frames[len(s.frames)-n:])
	slices.Reverse(top)
	return top
}

// FirstAvailableSlot returns the current boundary, or NoSlot when unset.
func (s *Stack) FirstAvailableSlot() Slot {
	return s.firstAvailable
}

// SetFirstAvailableSlot swaps in a new boundary and returns the previous one.
// slot must be NoSlot or strictly between MinSlot and 0.
func (s *Stack) SetFirstAvailableSlot(slot Slot) (Slot, error) {
	if !validBoundary(slot) {
		return s.firstAvailable, fmt.Errorf("%w: %d must be unset or in (%d, 0)", ErrInvalidBoundary, slot, MinSlot)
	}
	prev := s.firstAvailable
	s.firstAvailable = slot
	s.logger.Debug("First available slot changed.", "previous", int(prev), "current", int(slot))
	return prev, nil
}

func validBoundary(slot Slot) bool {
	return slot == NoSlot || (MinSlot < slot && slot < 0)
}

// boundary is the effective first available slot.
func (s *Stack) boundary() Slot {
	if s.firstAvailable == NoSlot {
		return -1
	}
	return s.firstAvailable
}

// Outermost returns the controller that currently owns global-frame teardown.
func (s *Stack) Outermost() any {
	return s.outermost
}

// ClaimOutermost makes owner the teardown owner if there is none and reports
// whether it did.
func (s *Stack) ClaimOutermost(owner any) bool {
	if s.outermost != nil {
		return false
	}
	s.outermost = owner
	return true
}

// ReleaseOutermost clears ownership if owner holds it and reports whether it
// did.
func (s *Stack) ReleaseOutermost(owner any) bool {
	if s.outermost == nil || s.outermost != owner {
		return false
	}
	s.outermost = nil
	return true
}

// Observe registers o for conversion notifications. The returned function
// removes the registration.
func (s *Stack) Observe(o Observer) func() {
	entry := &observerEntry{obs: o}
	s.observers = append(s.observers, entry)
	return func() {
		s.observers = slices.DeleteFunc(s.observers, func(e *observerEntry) bool { return e == entry })
	}
}

// Notify tells every registered observer that a conversion bound names.
func (s *Stack) Notify(class VisibilityClass, names []Name) {
	for _, e := range slices.Clone(s.observers) {
		e.obs.ObserveBindings(class, names)
	}
}

// readFrames returns the frames consulted for a request, in search order.
func (s *Stack) readFrames(class VisibilityClass) []*Frame {
	global := s.Global()
	if class.IsGlobal() {
		return []*Frame{global}
	}
	cur := s.Current()
	frames := make([]*Frame, 0, 2+len(cur.parents)+len(cur.iterParents))
	frames = append(frames, cur)
	frames = append(frames, cur.parents...)
	frames = append(frames, cur.iterParents...)
	return append(frames, global)
}

// conflictFrames returns every live frame a fresh slot must not collide with.
func (s *Stack) conflictFrames() []*Frame {
	cur := s.Current()
	frames := make([]*Frame, 0, 2+len(cur.parents)+len(cur.iterParents))
	frames = append(frames, cur, s.Global())
	frames = append(frames, cur.parents...)
	return append(frames, cur.iterParents...)
}

// writeFrames returns the frames a fresh binding is recorded in.
func (s *Stack) writeFrames(class VisibilityClass) []*Frame {
	if class.IsGlobal() {
		return []*Frame{s.Global()}
	}
	cur := s.Current()
	if !cur.keep {
		return []*Frame{cur}
	}
	return append([]*Frame{cur}, cur.parents...)
}

func taken(frames []*Frame, slot Slot) bool {
	for _, f := range frames {
		if f.HasSlot(slot) {
			return true
		}
	}
	return false
}

// Request resolves a name/slot pair. Exactly one side must be requested; its
// class decides which frames are read. Existing bindings are returned as is;
// otherwise a fresh binding is synthesized and recorded.
func (s *Stack) Request(name NameSpec, slot SlotSpec) (Name, Slot, error) {
	if name.requested == slot.requested {
		return NoName, NoSlot, fmt.Errorf("%w: exactly one of name and slot must be requested", ErrInvalidRequest)
	}
	if slot.Slot > 0 {
		return NoName, NoSlot, fmt.Errorf("%w: slot %d is not negative", ErrInvalidRequest, slot.Slot)
	}
	class := slot.Class
	if name.requested {
		class = name.Class
	}

	n, d := name.Name, slot.Slot
	for _, f := range s.readFrames(class) {
		rn, rd, found := f.Read(n, d)
		if !found {
			continue
		}
		if err := checkDualHit(f, n, d); err != nil {
			return NoName, NoSlot, err
		}
		return rn, rd, nil
	}

	fresh, err := s.gendim(n, d, class)
	if err != nil {
		return NoName, NoSlot, err
	}
	for _, f := range s.writeFrames(class) {
		f.Write(fresh.Name, fresh.Slot)
	}
	s.logger.Debug("Fresh slot allocated.", "name", string(fresh.Name), "slot", int(fresh.Slot), "class", class.String(), "depth", len(s.frames))
	return fresh.Name, fresh.Slot, nil
}

// checkDualHit rejects a frame that binds both name and slot, but not to each
// other.
func checkDualHit(f *Frame, name Name, slot Slot) error {
	if name == NoName || slot == NoSlot {
		return nil
	}
	boundSlot, nameHit := f.SlotOf(name)
	boundName, slotHit := f.NameOf(slot)
	if nameHit && slotHit && (boundSlot != slot || boundName != name) {
		return fmt.Errorf("%w: %q is bound to %d but %d is bound to %q", ErrConflictingBinding, name, boundSlot, slot, boundName)
	}
	return nil
}

// gendim synthesizes a fresh binding for a request that missed every frame.
func (s *Stack) gendim(name Name, slot Slot, class VisibilityClass) (Binding, error) {
	conflicts := s.conflictFrames()

	fresh := slot
	if fresh == NoSlot {
		fresh = s.boundary()
		if class == Visible {
			fresh = -1
		}
		for fresh >= MinSlot && taken(conflicts, fresh) {
			fresh--
		}
	}

	freshName := name
	if freshName == NoName {
		freshName = FreshName(fresh)
	}

	if fresh < MinSlot || taken(conflicts, fresh) || (class == Visible && fresh <= s.boundary()) {
		return Binding{}, fmt.Errorf("%w during allocation for %s", ErrExhausted, freshName)
	}
	return Binding{Name: freshName, Slot: fresh}, nil
}
