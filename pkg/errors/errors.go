// Package errors provides structured error types for recipegraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the core
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror how a failure should be treated by the caller:
//   - MALFORMED_RECORD: a recipe record was rejected; skip it and continue
//   - DISCONNECTED_INPUT: a product has no ingredients; diagnostic only
//   - EMPTY_GRAPH: modularity is undefined; the detection run fails
//   - RESOURCE_ERROR: I/O failed in a collaborator (file, cache, store)
//   - INVALID_*: bad user input (flags, config, formats)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedRecord, "record %d: empty product", i)
//	if errors.Is(err, errors.ErrCodeMalformedRecord) {
//	    // skip the record
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeResource, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Record and graph errors
	ErrCodeMalformedRecord   Code = "MALFORMED_RECORD"
	ErrCodeDisconnectedInput Code = "DISCONNECTED_INPUT"
	ErrCodeEmptyGraph        Code = "EMPTY_GRAPH"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidMethod Code = "INVALID_METHOD"

	// Resource errors
	ErrCodeResource Code = "RESOURCE_ERROR"
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface. A directly wrapped *Error with the
// same code contributes its message without repeating the code.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.detail())
}

func (e *Error) detail() string {
	if e.Cause == nil {
		return e.Message
	}
	if c, ok := e.Cause.(*Error); ok && c.Code == e.Code {
		return e.Message + ": " + c.detail()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err should abort the current operation.
// Malformed records and disconnected inputs are recoverable; everything
// else, including plain errors, is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case ErrCodeMalformedRecord, ErrCodeDisconnectedInput:
		return false
	}
	return true
}

// Resource wraps an I/O failure from a collaborator. It returns nil when
// cause is nil so callers can wrap unconditionally.
func Resource(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return Wrap(ErrCodeResource, cause, format, args...)
}
