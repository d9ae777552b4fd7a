// Package dimstack allocates negative axis slots and binds them to names.
//
// # Model
//
// A Stack holds a non-empty stack of Frames. The bottom frame is the global
// frame: it is created with the Stack and is never popped. Every other frame
// belongs to a scope controller (see package scope) and lives between the
// controller's enter and exit.
//
// Each Frame is a bidirectional name<->slot map plus references to the
// ancestor frames it may read from:
//
//	              +--------------+
//	              | global frame |  GLOBAL / VISIBLE bindings
//	              +------+-------+
//	                     |
//	              +------v-------+
//	              |   frame A    |  parents: [global]
//	              +------+-------+
//	                     |
//	              +------v-------+
//	              |   frame B    |  parents: [A], iterParents: [...]
//	              +--------------+
//
// # Requests
//
// All allocation goes through Stack.Request. Exactly one of the two
// arguments carries a request (RequestName or RequestSlot) with a
// VisibilityClass; the other is concrete or unset:
//
//	name, slot, err := s.Request(dimstack.ConcreteName("x"), dimstack.RequestSlot(dimstack.NoSlot, dimstack.Local))
//
// Local requests read the current frame, its parents, its iteration parents
// and finally the global frame. Global and Visible requests read and write
// only the global frame. On a miss a fresh slot is found by walking down from
// the first available slot until it collides with no live frame.
//
// Slots are unique across every simultaneously live frame; a request that
// cannot find a free slot at or above MinSlot fails with ErrExhausted.
package dimstack
