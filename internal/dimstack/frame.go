package dimstack

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Frame holds the bindings of one scope. Its ancestor references and keep
// flag are fixed at construction; its two maps change while the scope is
// live and always remain mutual inverses.
type Frame struct {
	nameToSlot  *orderedmap.OrderedMap[Name, Slot]
	slotToName  *orderedmap.OrderedMap[Slot, Name]
	parents     []*Frame
	iterParents []*Frame
	keep        bool
}

// NewFrame creates an empty frame. parents are ordered most recent first.
func NewFrame(parents, iterParents []*Frame, keep bool) *Frame {
	return &Frame{
		nameToSlot:  orderedmap.New[Name, Slot](),
		slotToName:  orderedmap.New[Slot, Name](),
		parents:     parents,
		iterParents: iterParents,
		keep:        keep,
	}
}

// Replay creates a frame that shares the maps of a snapshot taken by
// Snapshot, with fresh ancestor references. Bindings added to the replayed
// frame are visible in the snapshot and vice versa.
func Replay(snapshot *Frame, parents, iterParents []*Frame, keep bool) *Frame {
	return &Frame{
		nameToSlot:  snapshot.nameToSlot,
		slotToName:  snapshot.slotToName,
		parents:     parents,
		iterParents: iterParents,
		keep:        keep,
	}
}

// Snapshot returns a frame sharing f's maps without its ancestor references,
// so that a saved frame does not keep unrelated frames alive.
func (f *Frame) Snapshot() *Frame {
	return &Frame{
		nameToSlot: f.nameToSlot,
		slotToName: f.slotToName,
		keep:       f.keep,
	}
}

// Read resolves name and slot against this frame's own entries. The name is
// looked up in the name map and the slot in the slot map independently; a
// hit in either reports found. A name hit replaces the slot and a slot hit
// replaces the name; misses pass the inputs through.
func (f *Frame) Read(name Name, slot Slot) (Name, Slot, bool) {
	found := false
	resolvedName, resolvedSlot := name, slot
	if name != NoName {
		if s, ok := f.nameToSlot.Get(name); ok {
			resolvedSlot = s
			found = true
		}
	}
	if slot != NoSlot {
		if n, ok := f.slotToName.Get(slot); ok {
			resolvedName = n
			found = true
		}
	}
	return resolvedName, resolvedSlot, found
}

// Write binds name to slot in both directions. Both must be set; the caller
// is responsible for checking collisions.
func (f *Frame) Write(name Name, slot Slot) {
	if name == NoName || slot == NoSlot {
		panic(fmt.Sprintf("dimstack: cannot write incomplete binding %q=%d", name, slot))
	}
	f.slotToName.Set(slot, name)
	f.nameToSlot.Set(name, slot)
}

// Free removes both directions of a binding, ignoring missing entries, and
// returns the pair.
func (f *Frame) Free(name Name, slot Slot) Binding {
	f.slotToName.Delete(slot)
	f.nameToSlot.Delete(name)
	return Binding{Name: name, Slot: slot}
}

// SlotOf returns the slot bound to name in this frame.
func (f *Frame) SlotOf(name Name) (Slot, bool) {
	return f.nameToSlot.Get(name)
}

// NameOf returns the name bound to slot in this frame.
func (f *Frame) NameOf(slot Slot) (Name, bool) {
	return f.slotToName.Get(slot)
}

// HasSlot reports whether slot is taken in this frame.
func (f *Frame) HasSlot(slot Slot) bool {
	_, ok := f.slotToName.Get(slot)
	return ok
}

// Len returns the number of names bound in this frame.
func (f *Frame) Len() int {
	return f.nameToSlot.Len()
}

// Bindings returns the frame's bindings in name insertion order.
func (f *Frame) Bindings() []Binding {
	out := make([]Binding, 0, f.nameToSlot.Len())
	for p := f.nameToSlot.Oldest(); p != nil; p = p.Next() {
		out = append(out, Binding{Name: p.Key, Slot: p.Value})
	}
	return out
}

// Drain frees every binding, most recently inserted name first, and returns
// the freed pairs in that order.
func (f *Frame) Drain() []Binding {
	out := make([]Binding, 0, f.nameToSlot.Len())
	for p := f.nameToSlot.Newest(); p != nil; {
		prev := p.Prev()
		out = append(out, f.Free(p.Key, p.Value))
		p = prev
	}
	return out
}

// Parents returns the read-only ancestors, most recent first.
func (f *Frame) Parents() []*Frame { return f.parents }

// IterParents returns the frames shared by the steps of a driving loop.
func (f *Frame) IterParents() []*Frame { return f.iterParents }

// Keep reports whether the frame is replayable.
func (f *Frame) Keep() bool { return f.keep }

// IterationClosure returns f followed by every frame reachable through
// iteration parents, breadth first, each frame once.
func (f *Frame) IterationClosure() []*Frame {
	closure := []*Frame{f}
	seen := map[*Frame]struct{}{f: {}}
	frontier := []*Frame{f}
	for len(frontier) > 0 {
		var next []*Frame
		for _, p := range frontier {
			for _, ip := range p.iterParents {
				if _, ok := seen[ip]; ok {
					continue
				}
				seen[ip] = struct{}{}
				next = append(next, ip)
			}
		}
		closure = append(closure, next...)
		frontier = next
	}
	return closure
}
