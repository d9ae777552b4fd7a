package scope

import (
	"github.com/specialistvlad/namedim/internal/dimstack"
)

// Global binds into the global frame instead of pushing one of its own. While
// entered it records every name a global or visible conversion binds; on its
// outermost exit it frees exactly those names, and on its next outermost
// entry it restores them.
type Global struct {
	session
	recorded []dimstack.Binding
	cancel   func()
}

// NewGlobal creates a global controller for stack.
func NewGlobal(stack *dimstack.Stack) *Global {
	return &Global{session: session{stack: stack}}
}

// Enter implements Controller.
func (g *Global) Enter() error {
	if g.depth == 0 {
		global := g.stack.Global()
		for _, b := range g.recorded {
			global.Write(b.Name, b.Slot)
		}
		g.recorded = nil
		g.cancel = g.stack.Observe(g)
	}
	g.enter()
	return nil
}

// Exit implements Controller.
func (g *Global) Exit() error {
	if g.depth == 0 {
		return ErrNotEntered
	}
	if g.depth == 1 {
		global := g.stack.Global()
		for _, b := range g.recorded {
			global.Free(b.Name, b.Slot)
		}
		g.cancel()
		g.cancel = nil
	}
	g.exit()
	return nil
}

// ObserveBindings implements dimstack.Observer.
func (g *Global) ObserveBindings(class dimstack.VisibilityClass, names []dimstack.Name) {
	if !class.IsGlobal() {
		return
	}
	global := g.stack.Global()
	for _, n := range names {
		if slot, ok := global.SlotOf(n); ok {
			g.recorded = append(g.recorded, dimstack.Binding{Name: n, Slot: slot})
		}
	}
}

// Recorded returns the global bindings attributed to this controller.
func (g *Global) Recorded() []dimstack.Binding {
	return append([]dimstack.Binding(nil), g.recorded...)
}
