package dimstack

import (
	"fmt"
	"strings"
)

// Slot is a negative axis position. Slots closer to zero are more visible to
// end users; -1 is the rightmost batch axis.
type Slot int

// Name is a symbolic axis identifier.
type Name string

const (
	// NoSlot marks an unset slot. Zero is never a valid slot.
	NoSlot Slot = 0
	// NoName marks an unset name.
	NoName Name = ""

	// MinSlot is the most negative slot the allocator hands out.
	MinSlot Slot = -25
)

// freshNamePrefix prefixes names synthesized for unnamed slots.
const freshNamePrefix = "_pyro_dim_"

// FreshName returns the display name synthesized for an unnamed slot.
func FreshName(s Slot) Name {
	return Name(fmt.Sprintf("%s%d", freshNamePrefix, -int(s)))
}

// VisibilityClass governs which frames a request reads from and writes into.
type VisibilityClass int

const (
	// Local bindings live in the current scope chain.
	Local VisibilityClass = iota
	// Global bindings live in the global frame and are visible everywhere.
	Global
	// Visible bindings are global, but fresh slots are drawn from the
	// user-facing range above the first available slot.
	Visible
)

// String implements fmt.Stringer.
func (c VisibilityClass) String() string {
	switch c {
	case Local:
		return "local"
	case Global:
		return "global"
	case Visible:
		return "visible"
	default:
		return fmt.Sprintf("VisibilityClass(%d)", int(c))
	}
}

// ParseVisibilityClass parses "local", "global" or "visible".
func ParseVisibilityClass(s string) (VisibilityClass, error) {
	switch strings.ToLower(s) {
	case "local", "":
		return Local, nil
	case "global":
		return Global, nil
	case "visible":
		return Visible, nil
	default:
		return Local, fmt.Errorf("unknown visibility class %q: must be 'local', 'global' or 'visible'", s)
	}
}

// IsGlobal reports whether bindings of this class live in the global frame.
func (c VisibilityClass) IsGlobal() bool {
	return c == Global || c == Visible
}

// Binding is a single name/slot pair.
type Binding struct {
	Name Name `json:"name"`
	Slot Slot `json:"slot"`
}

// String renders the binding as name=slot.
func (b Binding) String() string {
	return fmt.Sprintf("%s=%d", b.Name, b.Slot)
}

// FormatBindings renders bindings separated by spaces, or "(empty)".
func FormatBindings(bindings []Binding) string {
	if len(bindings) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}

// NameSpec is the name side of a request. The zero value is an unset name.
type NameSpec struct {
	Name      Name
	Class     VisibilityClass
	requested bool
}

// ConcreteName is a known name that does not carry a request.
func ConcreteName(n Name) NameSpec {
	return NameSpec{Name: n}
}

// RequestName asks the allocator to resolve a name, optionally seeded with a
// candidate n (NoName for none).
func RequestName(n Name, class VisibilityClass) NameSpec {
	return NameSpec{Name: n, Class: class, requested: true}
}

// Requested reports whether the spec carries a request.
func (n NameSpec) Requested() bool { return n.requested }

// SlotSpec is the slot side of a request. The zero value is an unset slot.
type SlotSpec struct {
	Slot      Slot
	Class     VisibilityClass
	requested bool
}

// ConcreteSlot is a known slot that does not carry a request.
func ConcreteSlot(s Slot) SlotSpec {
	return SlotSpec{Slot: s}
}

// RequestSlot asks the allocator to resolve a slot, optionally seeded with a
// candidate s (NoSlot for none).
func RequestSlot(s Slot, class VisibilityClass) SlotSpec {
	return SlotSpec{Slot: s, Class: class, requested: true}
}

// Requested reports whether the spec carries a request.
func (s SlotSpec) Requested() bool { return s.requested }
