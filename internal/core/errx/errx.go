// Package errx defines the error taxonomy shared across the orchestration
// tier. Every error that crosses a retry or fallback boundary carries a Kind
// assigned at the point it is raised, so callers classify with errors.As
// instead of matching on message text.
package errx

import (
	"errors"
	"fmt"
)

// Kind partitions failures by how callers may react to them.
type Kind uint8

const (
	// KindInternal covers unexpected failures with no recovery policy.
	KindInternal Kind = iota
	// KindCallerInput marks caller mistakes: bad arguments, unknown tools,
	// schema violations. Never retried.
	KindCallerInput
	// KindTransient marks failures worth retrying: network errors, timeouts,
	// service-unavailable responses.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindCallerInput:
		return "caller_input"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a Kind, a machine-readable code and a
// message safe to log or surface.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// CallerInput raises a non-retryable caller mistake.
func CallerInput(code, message string, err error) *Error {
	return &Error{Kind: KindCallerInput, Code: code, Message: message, Err: err}
}

// Transient raises a retryable failure.
func Transient(code, message string, err error) *Error {
	return &Error{Kind: KindTransient, Code: code, Message: message, Err: err}
}

// Internal raises an unclassified failure.
func Internal(code, message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Errors raised outside this
// package (raw network errors, context timeouts) have no tag and classify as
// transient: everything non-retryable is tagged explicitly where it is raised.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsCallerInput reports whether err is a caller mistake that must not retry.
func IsCallerInput(err error) bool {
	return err != nil && KindOf(err) == KindCallerInput
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// CodeOf returns the machine code attached to err, or "" when untagged.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
