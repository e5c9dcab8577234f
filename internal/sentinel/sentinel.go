package sentinel

import "errors"

// Sentinel dependency errors. The store and other collaborators return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("closed")
	ErrStale        = errors.New("stale snapshot")
	ErrUnavailable  = errors.New("unavailable")
)
