package service

import (
	"errors"
	"fmt"
)

// Error taxonomy of the progression engine. The HTTP layer maps these to
// status codes; everything else wraps with %w and stays inspectable via
// errors.Is.
var (
	// ErrValidation is the base kind for rejected input.
	ErrValidation = errors.New("validation failed")

	ErrMissingUserID    = fmt.Errorf("%w: userId is required", ErrValidation)
	ErrMissingQuestID   = fmt.Errorf("%w: questId is required", ErrValidation)
	ErrMissingArtifact  = fmt.Errorf("%w: submittedArtifact is required", ErrValidation)
	ErrArtifactTooShort = fmt.Errorf("%w: submittedArtifact must be longer than 10 characters", ErrValidation)

	// ErrQuestNotFound reports an unknown quest id.
	ErrQuestNotFound = errors.New("quest not found")

	// ErrUserNotFound reports a missing user progression record.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict reports an XP transaction that kept losing the version
	// race after exhausting its retries. The submission can be retried.
	ErrConflict = errors.New("progression update conflict")

	// ErrTimeout reports a store round-trip that exceeded its deadline.
	ErrTimeout = errors.New("storage deadline exceeded")

	// ErrUnavailable reports that the backing store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotStarted reports use of the service before Start.
	ErrNotStarted = errors.New("service not started")
)
