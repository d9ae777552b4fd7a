package dimstack

import "errors"

var (
	// ErrExhausted is returned when no free slot at or above MinSlot exists.
	// It is not retryable: the caller must free slots first.
	ErrExhausted = errors.New("ran out of free slots")

	// ErrInvalidRequest is returned when a request does not carry exactly one
	// requested side, or carries a non-negative slot.
	ErrInvalidRequest = errors.New("invalid allocation request")

	// ErrInvalidBoundary is returned for a first available slot outside
	// (MinSlot, 0).
	ErrInvalidBoundary = errors.New("invalid first available slot")

	// ErrConflictingBinding is returned when a frame binds the requested name
	// and the requested slot to different partners.
	ErrConflictingBinding = errors.New("conflicting binding")
)
