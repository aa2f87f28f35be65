// Package errors provides structured error types for shakify.
//
// Every layer reports failures as an [*Error] carrying a machine-readable
// [Code]. The CLI prints [UserMessage], the HTTP API maps codes to status
// codes, and per-export failures are stored as plain messages in the
// analysis result.
//
// # Error Codes
//
//   - INVALID_*: input or manifest validation failures
//   - *_NOT_FOUND: the registry has no such package or tarball
//   - NETWORK_ERROR: registry or tarball transfer failures
//   - RATE_LIMITED: the registry answered 429, see [RateLimitedError]
//   - MATERIALIZE_FAILED, INTEGRITY_MISMATCH: archive problems
//   - BUNDLE_FAILED: one export could not be bundled
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPackage, "invalid npm package name: %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidPackage) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Source materialization errors
	ErrCodeMaterialize       Code = "MATERIALIZE_FAILED"
	ErrCodeIntegrityMismatch Code = "INTEGRITY_MISMATCH"

	// Bundling errors (scoped to a single export)
	ErrCodeBundle Code = "BUNDLE_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
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

// RateLimitedError reports a 429 response and how long the server asked
// clients to wait before the next request.
type RateLimitedError struct {
	RetryAfter time.Duration // zero when the response had no usable Retry-After
	Err        error         // underlying error, if any
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// Unwrap returns the underlying error.
func (e *RateLimitedError) Unwrap() error {
	return e.Err
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
