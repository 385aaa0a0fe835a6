package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrState             = errors.New("invalid state")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Stable error kinds exposed to API clients.
const (
	KindValidation    = "validation_error"
	KindConflict      = "conflict_error"
	KindNotFound      = "not_found"
	KindAuthorization = "authorization_error"
	KindUnauthorized  = "unauthorized"
	KindState         = "state_error"
	KindRateLimit     = "rate_limit"
	KindInternal      = "internal_error"
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrState):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	}

	return http.StatusInternalServerError
}

// Kind returns the stable error kind for err.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrState):
		return KindState
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimit
	}
	return KindInternal
}
