package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates the backend has no record for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrSubmitInFlight indicates a submission is already running for the
	// conversation; the Submitting phase is the mutual-exclusion mechanism.
	ErrSubmitInFlight = errors.New("submission already in progress")

	// ErrForbidden indicates the user's role does not allow the action.
	ErrForbidden = errors.New("forbidden")
)

type (
	// ValidationError indicates the draft is not submittable yet (missing
	// text or content). Recoverable: the session stays in Reviewing.
	ValidationError struct {
		Message string
	}

	// CommitError indicates the backend rejected draft creation or the
	// call failed on the network. Recoverable: the session returns to
	// Reviewing with its content intact so the commit can be retried.
	CommitError struct {
		Message string
		Err     error
	}

	// AttachmentError indicates a single attachment failed to register
	// after the draft was created. Reported as a partial-success note,
	// never blocks completion.
	AttachmentError struct {
		ContentRef string
		Err        error
	}

	// RetractionError indicates an artifact could not be deleted. Always
	// swallowed after logging, never surfaced to the user.
	RetractionError struct {
		Artifact string
		Err      error
	}
)

func (e *ValidationError) Error() string { return e.Message }

func (e *CommitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CommitError) Unwrap() error { return e.Err }

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %s: %v", e.ContentRef, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

func (e *RetractionError) Error() string {
	return fmt.Sprintf("retract %s: %v", e.Artifact, e.Err)
}

func (e *RetractionError) Unwrap() error { return e.Err }
