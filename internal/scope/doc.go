// Package scope brackets regions of code that allocate named axes.
//
// Every controller is re-entrant: it counts its nesting depth and does real
// work only on the outermost Enter (depth 0 -> 1) and the matching Exit
// (depth 1 -> 0). Enter and Exit must nest like a stack.
//
// # Controllers
//
//   - [Local] pushes its own frame onto the dimstack.Stack. With keep set,
//     its bindings are saved on exit and replayed on the next entry.
//   - [Global] binds into the global frame and frees exactly the names it
//     caused to be bound when it exits.
//   - [Boundary] temporarily moves the stack's first available slot,
//     reserving the range above it for the caller.
//   - [Cleanup] only manages the global frame's lifetime.
//
// All controllers also carry cleanup behavior: the first controller to enter
// while no other owns the stack becomes the owner, and when it finally exits
// the whole global frame is drained and saved. The saved bindings are
// restored if that controller becomes the owner again.
//
// # Iteration
//
// A Local controller can drive a loop, giving each step its own frame:
//
//	markov := scope.NewLocal(stack, scope.WithHistory(1))
//	for t := range scope.Range(markov, 3) {
//	    // allocations here live in step t's frame
//	}
//
// The last step's frame is released even when the loop body breaks early.
package scope
