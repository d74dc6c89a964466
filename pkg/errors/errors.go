package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Missing or malformed required fields",
		StatusCode: http.StatusBadRequest,
	}

	ErrDuplicateRecord = &AppError{
		Code:       "DUPLICATE_RECORD",
		Message:    "An equivalent record already exists",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrStorageFailure = &AppError{
		Code:       "STORAGE_FAILURE",
		Message:    "Failed to persist data",
		StatusCode: http.StatusInternalServerError,
	}

	ErrUpstreamUnavailable = &AppError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    "Upstream source could not be reached",
		StatusCode: http.StatusBadGateway,
	}

	ErrInvalidUpstreamData = &AppError{
		Code:       "INVALID_UPSTREAM_DATA",
		Message:    "Upstream source returned an unexpected payload",
		StatusCode: http.StatusBadGateway,
	}

	ErrSyncInProgress = &AppError{
		Code:       "SYNC_IN_PROGRESS",
		Message:    "A sync cycle for this source is already running",
		StatusCode: http.StatusConflict,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewValidation wraps validation failures with a helpful message.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       ErrValidation.Code,
		Message:    message,
		StatusCode: ErrValidation.StatusCode,
	}
}
