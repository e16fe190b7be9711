package store

import "errors"

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested record or diagnosis does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition indicates a lifecycle update that the state
	// machine forbids, e.g. marking a succeeded record failed.
	ErrInvalidTransition = errors.New("invalid status transition")
)
