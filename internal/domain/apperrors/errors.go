package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and handlers.
var (
	// ErrUnauthorized is returned when the caller does not own the resource.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBackendUnavailable is returned when the LLM backend cannot be reached.
	ErrBackendUnavailable = errors.New("llm backend unavailable")

	// ErrConversionFailed is returned when audio conversion produced no usable output.
	ErrConversionFailed = errors.New("audio conversion failed")

	// ErrEmptyTranscription is returned when the speech backend transcribed no text.
	ErrEmptyTranscription = errors.New("transcription resulted in empty text")

	// ErrNoActiveTurn is returned by a stop request that found nothing to cancel.
	ErrNoActiveTurn = errors.New("no active response found")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// BackendError carries a non-2xx outcome from the LLM backend.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// NewBackendError builds a BackendError from a status code and response body.
func NewBackendError(status int, body string) *BackendError {
	return &BackendError{Status: status, Body: body}
}
