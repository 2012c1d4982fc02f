package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredential aborts a run before any network call is made. It is
// the only batch-fatal error; everything else is scoped to one scene or one
// reference image.
var ErrMissingCredential = errors.New("missing api credential")

// UploadPhase identifies which step of the two-phase-plus-confirm reference
// upload failed.
type UploadPhase string

const (
	PhaseRequestTarget UploadPhase = "request-target"
	PhaseTransfer      UploadPhase = "transfer"
	PhaseConfirm       UploadPhase = "confirm"
)

// UploadError reports a reference registration failure. The affected image is
// excluded from conditioning; the batch itself continues.
type UploadError struct {
	Phase UploadPhase
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("reference upload failed at %s: %v", e.Phase, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmissionError reports a rejected generation request. Submission is
// single-attempt: callers must not retry it.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("generation submission rejected: http %d: %s", e.StatusCode, e.Body)
}

// GenerationError reports a job that terminated in failure, either because
// the service said so or because a status query itself failed.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Reason
}

// TimeoutError reports a job that never reached a terminal status within the
// poll budget. It is deliberately distinct from GenerationError so callers
// can tell a stuck job from a failed one.
type TimeoutError struct {
	Attempts int
	Delay    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timed out after %d polls (%s apart)", e.Attempts, e.Delay)
}

// TransferError reports a failure downloading a finished image for
// packaging. Scoped to one scene.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image download failed: %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("image download failed: %s: http %d", e.URL, e.StatusCode)
}

func (e *TransferError) Unwrap() error { return e.Err }
