package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// PostgresErrorMessage describes client directory database failures.
	PostgresErrorMessage = "database operation failed"
	// RenderErrorMessage describes document generation failures.
	RenderErrorMessage = "invoice rendering failed"
)

// Failure kinds raised while running a conversation turn. Everything except
// ErrRenderFailure is recovered inside the dialogue and turned into a re-prompt.
var (
	ErrExtractionFailure = errors.New("item extraction failed")
	ErrEmptyExtraction   = errors.New("item extraction returned no items")
	ErrUnparsableNumber  = errors.New("numeric input could not be parsed")
	ErrMissingUnitRate   = errors.New("line item has no unit rate")
	ErrRenderFailure     = errors.New("document render failed")
	ErrStoreCorruption   = errors.New("stored data is unreadable")
	ErrInvalidItem       = errors.New("invalid line item")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRender marks a renderer or document store failure. The wrapped error
// matches ErrRenderFailure so callers can keep the session for a retry.
func WrapRender(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrRenderFailure, err),
		Status:  http.StatusBadGateway,
		Message: RenderErrorMessage,
	}
}

// WrapPostgres wraps a database error with a consistent status code and message.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: PostgresErrorMessage,
	}
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
