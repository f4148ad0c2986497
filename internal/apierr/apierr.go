package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried over the API boundary. Handlers translate
// *Error values into HTTP responses; services construct them.
const (
	CodeValidation             = "validation_error"
	CodeUnauthorized           = "unauthorized"
	CodeNotFound               = "not_found"
	CodeAlreadyCompleted       = "already_completed"
	CodeNoProgress             = "no_progress"
	CodeInsufficientCandidates = "insufficient_candidates"
	CodeOracleFailure          = "oracle_failure"
	CodePersistenceFailure     = "persistence_failure"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

// AlreadyCompleted marks a state conflict on a finished test instance.
// Retrying the same call can never succeed.
func AlreadyCompleted(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeAlreadyCompleted, fmt.Errorf(format, args...))
}

func NoProgress(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeNoProgress, fmt.Errorf(format, args...))
}

func InsufficientCandidates(format string, args ...any) *Error {
	return New(http.StatusUnprocessableEntity, CodeInsufficientCandidates, fmt.Errorf(format, args...))
}

// OracleFailure is internal-only: generation converts it into the
// deterministic fallback and never surfaces it to the client.
func OracleFailure(format string, args ...any) *Error {
	return New(http.StatusBadGateway, CodeOracleFailure, fmt.Errorf(format, args...))
}

// PersistenceFailure aborts atomically; the caller may retry as-is.
func PersistenceFailure(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistenceFailure, err)
}

func Is(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// HTTPStatus extracts the status for a handler response, defaulting
// to 500 for untyped errors.
func HTTPStatus(err error) (int, string) {
	var ae *Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ae.Code
	}
	return http.StatusInternalServerError, ""
}
