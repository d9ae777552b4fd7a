// Package named connects positional and named axis representations to the
// allocator. Conversion routines call into it once per conversion: names are
// turned into slots when going to positional data, and trailing batch axes
// are turned into names when going to named values.
package named

import (
	"context"
	"fmt"

	"github.com/specialistvlad/namedim/internal/ctxlog"
	"github.com/specialistvlad/namedim/internal/dimstack"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Named is a value whose batch axes are identified by name.
type Named interface {
	Inputs() []dimstack.Name
}

// Positional is a value whose batch axes are identified by position.
type Positional interface {
	Shape() []int
}

// Inputs is a Named value given by its ordered input names.
type Inputs []dimstack.Name

// Inputs implements Named.
func (in Inputs) Inputs() []dimstack.Name { return in }

// Sizes is a Positional value given by its axis sizes.
type Sizes []int

// Shape implements Positional.
func (s Sizes) Shape() []int { return s }

// AllocateNames resolves a slot for every name, plus every entry already in
// existing. Entries that are not yet requests are turned into requests of the
// given class that keep their concrete slot as a candidate. The result
// preserves the order of existing followed by newly seen names.
func AllocateNames(stack *dimstack.Stack, names []dimstack.Name, existing *orderedmap.OrderedMap[dimstack.Name, dimstack.SlotSpec], class dimstack.VisibilityClass) (*orderedmap.OrderedMap[dimstack.Name, dimstack.Slot], error) {
	requests := copyRequests(existing)
	for _, n := range names {
		spec, _ := requests.Get(n)
		if !spec.Requested() {
			requests.Set(n, dimstack.RequestSlot(spec.Slot, class))
		}
	}

	out := orderedmap.New[dimstack.Name, dimstack.Slot]()
	for p := requests.Oldest(); p != nil; p = p.Next() {
		_, slot, err := stack.Request(dimstack.ConcreteName(p.Key), p.Value)
		if err != nil {
			return nil, fmt.Errorf("allocating slot for %q: %w", p.Key, err)
		}
		out.Set(p.Key, slot)
	}
	return out, nil
}

// AllocateSlots resolves a name for every trailing batch axis of size greater
// than one, plus every entry already in existing. Axes of size one broadcast
// and carry no identity.
func AllocateSlots(stack *dimstack.Stack, batchShape []int, existing *orderedmap.OrderedMap[dimstack.Slot, dimstack.NameSpec], class dimstack.VisibilityClass) (*orderedmap.OrderedMap[dimstack.Slot, dimstack.Name], error) {
	requests := copyRequests(existing)
	batchDims := len(batchShape)
	for i, size := range batchShape {
		if size == 1 {
			continue
		}
		slot := dimstack.Slot(i - batchDims)
		spec, _ := requests.Get(slot)
		if !spec.Requested() {
			requests.Set(slot, dimstack.RequestName(spec.Name, class))
		}
	}

	out := orderedmap.New[dimstack.Slot, dimstack.Name]()
	for p := requests.Oldest(); p != nil; p = p.Next() {
		name, _, err := stack.Request(p.Value, dimstack.ConcreteSlot(p.Key))
		if err != nil {
			return nil, fmt.Errorf("allocating name for slot %d: %w", p.Key, err)
		}
		out.Set(p.Key, name)
	}
	return out, nil
}

// copyRequests returns a copy of existing, or an empty map when it is nil.
func copyRequests[K comparable, V any](existing *orderedmap.OrderedMap[K, V]) *orderedmap.OrderedMap[K, V] {
	out := orderedmap.New[K, V]()
	if existing == nil {
		return out
	}
	for p := existing.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// ToDataMessage describes one conversion of a named value to positional
// data.
type ToDataMessage struct {
	Value Named
	Class dimstack.VisibilityClass
	// Existing holds caller-supplied slots or requests, keyed by name.
	Existing *orderedmap.OrderedMap[dimstack.Name, dimstack.SlotSpec]
	// NameToSlot is filled in by ToData.
	NameToSlot *orderedmap.OrderedMap[dimstack.Name, dimstack.Slot]
	Handled    bool
}

// ToData allocates slots for the value's inputs. A message is processed only
// once; later calls with the same message are no-ops.
func ToData(ctx context.Context, stack *dimstack.Stack, msg *ToDataMessage) error {
	if msg.Handled {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	names := msg.Value.Inputs()

	result, err := AllocateNames(stack, names, msg.Existing, msg.Class)
	if err != nil {
		return err
	}
	if msg.NameToSlot == nil {
		msg.NameToSlot = orderedmap.New[dimstack.Name, dimstack.Slot]()
	}
	for p := result.Oldest(); p != nil; p = p.Next() {
		msg.NameToSlot.Set(p.Key, p.Value)
	}
	msg.Handled = true
	logger.Debug("Converted named value to positional data.", "names", len(names), "class", msg.Class.String())

	stack.Notify(msg.Class, names)
	return nil
}

// ToNamedMessage describes one conversion of positional data to a named
// value.
type ToNamedMessage struct {
	Value Positional
	// EventDims is the number of trailing axes that belong to the event and
	// are never named.
	EventDims int
	Class     dimstack.VisibilityClass
	// Existing holds caller-supplied names or requests, keyed by slot.
	Existing *orderedmap.OrderedMap[dimstack.Slot, dimstack.NameSpec]
	// SlotToName is filled in by ToNamed.
	SlotToName *orderedmap.OrderedMap[dimstack.Slot, dimstack.Name]
	Handled    bool
}

// BatchShape returns the value's shape without its event axes. A negative
// EventDims is treated as zero.
func (m *ToNamedMessage) BatchShape() []int {
	shape := m.Value.Shape()
	n := len(shape) - max(m.EventDims, 0)
	if n < 0 {
		n = 0
	}
	return shape[:n]
}

// ToNamed allocates names for the value's batch axes. A message is processed
// only once; later calls with the same message are no-ops.
func ToNamed(ctx context.Context, stack *dimstack.Stack, msg *ToNamedMessage) error {
	if msg.Handled {
		return nil
	}
	if msg.EventDims < 0 {
		return fmt.Errorf("%w: event dims %d is negative", dimstack.ErrInvalidRequest, msg.EventDims)
	}
	logger := ctxlog.FromContext(ctx)
	batchShape := msg.BatchShape()

	result, err := AllocateSlots(stack, batchShape, msg.Existing, msg.Class)
	if err != nil {
		return err
	}
	if msg.SlotToName == nil {
		msg.SlotToName = orderedmap.New[dimstack.Slot, dimstack.Name]()
	}
	names := make([]dimstack.Name, 0, result.Len())
	for p := result.Oldest(); p != nil; p = p.Next() {
		msg.SlotToName.Set(p.Key, p.Value)
		names = append(names, p.Value)
	}
	msg.Handled = true
	logger.Debug("Converted positional data to named value.", "batch_dims", len(batchShape), "names", len(names), "class", msg.Class.String())

	stack.Notify(msg.Class, names)
	return nil
}
