package models

import (
	"fmt"
	"net/http"
)

// HTTPError is implemented by every error kind the service can surface to a client.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// DatabaseError wraps any failure coming from the store. Callers never see driver errors directly.
	DatabaseError struct {
		Statement string
		Err       error
	}

	UnauthorizedError struct {
		Message string
	}

	// ValidationError optionally names the offending payload field, e.g. "bookmark.url".
	ValidationError struct {
		Message string
		Field   string
	}

	NotFoundError struct {
		Message  string
		Resource string
	}
)

func NewDatabaseError(statement string, cause error) *DatabaseError {
	return &DatabaseError{Statement: statement, Err: cause}
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Field: field}
}

func (e *DatabaseError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("database error: %v", e.Err)
	}
	return fmt.Sprintf("query failed: %s: %v", e.Statement, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Cause satisfies the causer interface of github.com/pkg/errors.
func (e *DatabaseError) Cause() error { return e.Err }

func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *NotFoundError) Error() string     { return e.Message }

func (e *DatabaseError) StatusCode() int     { return http.StatusInternalServerError }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
