package docstore

import "errors"

// Sentinel kinds for document store errors.
var (
	// ErrNotFound reports a missing document.
	ErrNotFound = errors.New("document not found")

	// ErrConflict reports a conditional update that lost the version race
	// after exhausting its retry budget. Safe to retry the whole operation.
	ErrConflict = errors.New("conditional update conflict")

	// ErrClosed reports an operation against a closed store.
	ErrClosed = errors.New("store closed")

	// ErrUnavailable reports that the backing storage cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNoChange may be returned by a MutateFunc to commit nothing.
	// ConditionalUpdate then succeeds and hands back the current document.
	ErrNoChange = errors.New("no change")
)
