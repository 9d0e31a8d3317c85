// Package apperr provides standardized domain error types for the application.
// Lookup providers classify their failures into these kinds at the source
// boundary, and the resolver/orchestrator branch on the kind instead of
// inspecting transport errors.
package apperr

import (
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a source definitively has no record. Expected,
	// advances discovery to the next tier.
	KindNotFound
	// KindUnavailable indicates a network failure, timeout, or 5xx from a
	// source after local retries were exhausted. Recoverable by falling
	// through to the next tier.
	KindUnavailable
	// KindWeakMatch indicates a candidate was found but failed the
	// name-match confidence bar.
	KindWeakMatch
	// KindInvalidIdentity indicates a found tax ID failed checksum or
	// format validation.
	KindInvalidIdentity
	// KindCredential indicates a provider reported exhausted or invalid
	// credentials.
	KindCredential
	// KindRateLimited indicates the provider returned 429. Retried locally;
	// classified as unavailable once retries run out.
	KindRateLimited
	// KindValidation indicates invalid input data.
	KindValidation
	// KindUnrecoverable indicates a programming or configuration error
	// (missing credentials, unparseable response). Fails the single request.
	KindUnrecoverable
)

// Error is a domain error with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Unavailable creates an unavailable error.
func Unavailable(message string) *Error {
	return New(KindUnavailable, message)
}

// WeakMatch creates a weak-match error.
func WeakMatch(message string) *Error {
	return New(KindWeakMatch, message)
}

// InvalidIdentity creates an invalid-identity error.
func InvalidIdentity(message string) *Error {
	return New(KindInvalidIdentity, message)
}

// Credential creates a provider-credential error.
func Credential(message string) *Error {
	return New(KindCredential, message)
}

// RateLimited creates a rate-limited error.
func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Unrecoverable creates an unrecoverable error.
func Unrecoverable(message string) *Error {
	return New(KindUnrecoverable, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
