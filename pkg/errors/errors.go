// Package errors defines the sentinel errors shared by the index, the query
// engine and the HTTP surface, plus an AppError wrapper that carries an HTTP
// status code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCapacityExceeded is returned when a generation tries to intern more
	// distinct strings than the packed descriptor format can address.
	ErrCapacityExceeded = errors.New("interner capacity exceeded")
	// ErrBuildCancelled is returned when the caller cancels an index build.
	ErrBuildCancelled = errors.New("index build cancelled")
	// ErrIndexInvalidated is returned when the contributor set changed while
	// a build was in flight.
	ErrIndexInvalidated = errors.New("index invalidated during build")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps err onto the status the HTTP API answers with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexInvalidated), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBuildCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
