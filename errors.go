package corio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions spec'd as singleton causes.
var (
	// ErrSubmissionQueueFull is the cause wrapped by SubmissionRejectedError.
	ErrSubmissionQueueFull = errors.New("corio: submission queue full")

	// ErrSimulatedFailureBeforeProcessing is delivered by AIODst when a
	// pre-fault is sampled for an SQE; the subsystem's Process is never
	// called for it.
	ErrSimulatedFailureBeforeProcessing = errors.New("corio: simulated failure before processing")

	// ErrSimulatedFailureAfterProcessing is delivered by AIODst when a
	// post-fault is sampled for an SQE; its real CQE is discarded.
	ErrSimulatedFailureAfterProcessing = errors.New("corio: simulated failure after processing")

	// ErrInvalidSubmission is the cause wrapped by InvalidSubmissionError.
	ErrInvalidSubmission = errors.New("corio: payload is neither a Thunk nor a Kinder")

	// ErrSchedulerShutdown is returned by Submit once Shutdown has run.
	ErrSchedulerShutdown = errors.New("corio: scheduler is shut down")
)

// SubmissionRejectedError reports that a subsystem's Enqueue returned
// false; the AIO bus synthesizes a CQE carrying this error and invokes
// the SQE's callback inline, on the dispatching goroutine.
type SubmissionRejectedError struct {
	Kind  Kind
	Cause error
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("corio: submission rejected for kind %q", e.Kind)
}

func (e *SubmissionRejectedError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrSubmissionQueueFull
}

// SubsystemError wraps an opaque error a Subsystem's Process produced
// for one of its inputs.
type SubsystemError struct {
	Kind  Kind
	Cause error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("corio: subsystem %q: %s", e.Kind, e.Cause)
}

func (e *SubsystemError) Unwrap() error {
	return e.Cause
}

// InvalidSubmissionError is panicked (never returned) when a payload
// cannot be routed to any kind. Per spec this is an assertion, not a
// recoverable error.
type InvalidSubmissionError struct {
	Payload any
}

func (e *InvalidSubmissionError) Error() string {
	return fmt.Sprintf("corio: invalid submission: %T is neither a Thunk nor a Kinder", e.Payload)
}

func (e *InvalidSubmissionError) Unwrap() error {
	return ErrInvalidSubmission
}

// WrapError wraps an error with a message, preserving it as the cause
// chain for errors.Is/errors.As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
