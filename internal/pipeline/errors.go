package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned for blank requirement or feedback text.
// No state changes when it is returned.
var ErrEmptyInput = errors.New("input text is empty")

// ErrRevisionInFlight is returned when a feedback cycle is already running.
var ErrRevisionInFlight = errors.New("a revision is already in progress for this session")

// ErrSessionReset is returned by an operation whose session was reset while
// it was running. Its result is discarded.
var ErrSessionReset = errors.New("session was reset during the operation")

// StateError reports an operation that is not allowed in the current state.
type StateError struct {
	Operation string
	State     State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Operation, e.State)
}

// VersionNotFoundError reports a history version that does not exist.
type VersionNotFoundError struct {
	Version int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %d not found in history", e.Version)
}
