package pipeline

import (
	"context"
	"errors"
)

// Sentinel errors. Wrap them with fmt.Errorf("...: %w") and classify with errors.Is.
var (
	// ErrUnknownPipeline means the pipeline type has no stage configuration
	ErrUnknownPipeline = errors.New("unknown pipeline type")

	// ErrUnknownStage means the stage id is not part of the pipeline
	ErrUnknownStage = errors.New("unknown stage id")

	// ErrUnknownEntity means the entity is not on the board
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrEntityBusy means the entity already has a commit in flight
	ErrEntityBusy = errors.New("entity has a transition in flight")

	// ErrForbidden means a pipeline guard refused the transition
	ErrForbidden = errors.New("transition forbidden")

	// ErrConflict means the entity was modified remotely since it was loaded
	ErrConflict = errors.New("entity was modified concurrently")

	// ErrCommitTimeout means the commit collaborator did not answer in time
	ErrCommitTimeout = errors.New("commit timed out")

	// ErrSessionActive means a drag gesture is already in progress
	ErrSessionActive = errors.New("a drag session is already in progress")

	// ErrNoSession means there is no drag gesture to continue
	ErrNoSession = errors.New("no drag session in progress")

	// ErrInvalidConfiguration means a stage set failed validation
	ErrInvalidConfiguration = errors.New("invalid stage configuration")
)

// failureReason classifies a commit error.
func failureReason(err error) Reason {
	switch {
	case errors.Is(err, ErrConflict):
		return ReasonConflict
	case errors.Is(err, ErrCommitTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonRemoteFailure
	}
}

// IsRejection returns true if err is one of the validation rejections.
func IsRejection(err error) bool {
	return errors.Is(err, ErrEntityBusy) ||
		errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrForbidden)
}
