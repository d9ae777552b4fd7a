package scope

import (
	"iter"

	"github.com/specialistvlad/namedim/internal/dimstack"
)

// Local pushes its own frame while entered.
//
// history is the number of frames below it, counted from the top of the
// stack, that the frame may read from. With keep set, the frame's bindings
// are saved on exit, replayed on the next entry, and written through to the
// visible ancestors, so neighboring branches at the same level depend on each
// other. Without keep, neighboring branches are independent given their
// shared ancestors.
type Local struct {
	session
	history     int
	keep        bool
	frame       *dimstack.Frame
	snapshot    *dimstack.Frame
	iterParents []*dimstack.Frame
}

// LocalOption configures a Local controller.
type LocalOption func(*Local)

// WithHistory sets how many enclosing frames are visible. Negative values
// are treated as zero.
func WithHistory(n int) LocalOption {
	return func(l *Local) {
		if n < 0 {
			n = 0
		}
		l.history = n
	}
}

// WithKeep makes the controller's frames replayable.
func WithKeep(keep bool) LocalOption {
	return func(l *Local) { l.keep = keep }
}

// NewLocal creates a local controller with history 1 and keep unset unless
// overridden.
func NewLocal(stack *dimstack.Stack, opts ...LocalOption) *Local {
	l := &Local{session: session{stack: stack}, history: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enter implements Controller. It never fails.
func (l *Local) Enter() error {
	if l.depth == 0 {
		parents := l.stack.Top(l.history)
		if l.keep && l.snapshot != nil {
			l.frame = dimstack.Replay(l.snapshot, parents, l.iterParents, l.keep)
			l.snapshot = nil
		} else {
			l.frame = dimstack.NewFrame(parents, l.iterParents, l.keep)
		}
		l.stack.Push(l.frame)
	}
	l.enter()
	return nil
}

// Exit implements Controller. Exiting while another frame sits above this
// controller's frame is a nesting bug and panics.
func (l *Local) Exit() error {
	if l.depth == 0 {
		return ErrNotEntered
	}
	if l.depth == 1 {
		if l.stack.Current() != l.frame {
			panic("scope: local exit out of order: controller frame is not the current frame")
		}
		popped := l.stack.Pop()
		if l.keep {
			l.snapshot = popped.Snapshot()
		}
		l.frame = nil
	}
	l.exit()
	return nil
}

// Frame returns the frame pushed by the outermost Enter, or nil when the
// controller is not entered.
func (l *Local) Frame() *dimstack.Frame {
	return l.frame
}

// Iterate drives seq with l, entering a fresh frame for every value. All
// steps share the iteration closure of the frame that was current when the
// loop started. The frame of the last step is released when the loop ends,
// including when the consumer stops early.
func Iterate[T any](l *Local, seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		l.iterParents = l.stack.Current().IterationClosure()

		entered := false
		defer func() {
			if entered {
				l.mustExit()
			}
		}()

		for v := range seq {
			if entered {
				l.mustExit()
				entered = false
			}
			l.mustEnter()
			entered = true
			if !yield(v) {
				return
			}
		}
	}
}

// Range drives the integers 0..n-1 with l.
func Range(l *Local, n int) iter.Seq[int] {
	return Iterate(l, func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			if !yield(i) {
				return
			}
		}
	})
}

func (l *Local) mustEnter() {
	if err := l.Enter(); err != nil {
		panic(err)
	}
}

func (l *Local) mustExit() {
	if err := l.Exit(); err != nil {
		panic(err)
	}
}
