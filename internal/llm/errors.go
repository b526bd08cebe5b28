package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MalformedResponseError reports model output that does not parse into the
// expected structured shape. Raw holds the unparsed output for reporting.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed response from %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("malformed response from %s", e.Stage)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// GenerationError reports a failed model call.
type GenerationError struct {
	Operation string
	Cause     error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("generation failed during %s", e.Operation)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a model call that exceeded its time budget.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timed out during %s after %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return context.DeadlineExceeded
}

// AsGenerationError wraps a call error for an operation. Errors that already
// belong to the taxonomy are returned unchanged; deadline expiry becomes a
// TimeoutError.
func AsGenerationError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var timeoutErr *TimeoutError
	var genErr *GenerationError
	var malformed *MalformedResponseError
	switch {
	case errors.As(err, &timeoutErr), errors.As(err, &genErr), errors.As(err, &malformed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Operation: operation, Cause: err}
	default:
		return &GenerationError{Operation: operation, Cause: err}
	}
}

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
