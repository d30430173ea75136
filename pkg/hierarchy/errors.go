package hierarchy

import "errors"

// Domain errors. None of these are recovered inside the engine; callers map
// them to their transport's error surface. Wrapped variants carry the
// offending id, so match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrCycleDetected    = errors.New("cycle detected")
	ErrHasChildren      = errors.New("structure has children")
	ErrTreeTooDeep      = errors.New("tree too deep")
)
