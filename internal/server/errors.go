// Package server provides the HTTP REST API for interactive questionnaire drafting.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/pipeline"
)

// ErrSessionNotFound indicates an unknown or expired session id
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		notFound   *ErrSessionNotFound
		version    *pipeline.VersionNotFoundError
		state      *pipeline.StateError
		malformed  *llm.MalformedResponseError
		generation *llm.GenerationError
	)

	switch {
	case errors.Is(err, pipeline.ErrEmptyInput), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &version):
		return http.StatusNotFound
	case errors.As(err, &state), errors.Is(err, pipeline.ErrRevisionInFlight), errors.Is(err, pipeline.ErrSessionReset):
		return http.StatusConflict
	case llm.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &malformed), errors.As(err, &generation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
