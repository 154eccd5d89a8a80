// Copyright (c) 2026 Bestiary. All rights reserved.

/*
Package apperr defines the centralized error taxonomy for Bestiary.

Every fallible operation in the service returns either a value or an error
carrying one of a closed set of codes. No panics cross component boundaries
for expected failure modes.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Taxonomy: VALIDATION_ERROR, NOT_FOUND, PERSISTENCE_ERROR, RATE_LIMITED,
    UPSTREAM_ERROR, UNSUPPORTED_STYLE.
  - Mapping: Explicit mapping from AppError to standard HTTP status codes.

Every error that leaves a service or repository should be wrapped as an
[AppError] to ensure consistent API responses.
*/
package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable error codes. The set is closed: new codes require a new
// entry in the HTTP status mapping and in the transport layer's problem table.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeUnsupportedStyle = "UNSUPPORTED_STYLE"
)

// AppError is the canonical error type for the Bestiary API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Transient marks upstream failures worth retrying (5xx, timeouts,
	// connection resets). Consulted by the resilience policy layer only.
	Transient bool `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound(`Entity "mewtwo"`) // Returns `Entity "mewtwo" not found`
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// UnsupportedStyle creates a 400 [AppError] for a translation style outside
// the supported enumeration. It is returned before any network call is made.
func UnsupportedStyle(msg string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedStyle,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// RateLimited creates a 429 [AppError] reporting an exhausted upstream quota.
//
// This code never reaches the HTTP boundary: the translation orchestration
// layer absorbs it and degrades to the original text.
func RateLimited(msg string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    msg,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Persistence creates a 500 [AppError] for a storage engine failure.
// The cause is stored for logging but is never sent to the client.
func Persistence(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodePersistence,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Upstream creates a 500 [AppError] for a misbehaving upstream provider
// (anything other than not-found or rate-limit).
func Upstream(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// UpstreamTransient creates an upstream [AppError] flagged as retryable.
// Used for 5xx responses, request timeouts, and transport-level failures.
func UpstreamTransient(msg string, cause error) *AppError {
	e := Upstream(msg, cause)
	e.Transient = true
	return e
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
