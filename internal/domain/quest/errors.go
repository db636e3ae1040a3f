package quest

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound = errors.New("quest not found")
)
