// Package domainerrors provides coded errors that travel from services to
// transports without leaking implementation detail. Stores return sentinel
// errors (pkg/platform/sentinel); services translate them into coded errors;
// the HTTP layer maps codes onto status codes (pkg/platform/httputil).
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and branching.
type Code string

const (
	// CodeInvalidInput marks malformed values caught at a trust boundary
	// (bad UUIDs, unknown enum members).
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation marks requests that parse but violate field rules.
	CodeValidation Code = "validation_failed"

	// CodeBadRequest marks structurally broken requests (unreadable body).
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks lookups for entities that do not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks requests that clash with current state. Illegal
	// status transitions carry this code: the request was well-formed but
	// the application is not in a state that permits it.
	CodeConflict Code = "conflict"

	// CodeUnprocessable marks business-rule violations unrelated to the
	// state machine (duplicate live application, acting on a missing
	// application). Kept distinct from CodeConflict so callers can tell a
	// state-machine rejection from a precondition failure.
	CodeUnprocessable Code = "unprocessable"

	// CodeUnauthorized marks requests lacking an authenticated actor.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks authenticated actors without permission.
	CodeForbidden Code = "forbidden"

	// CodeInvariantViolation marks broken aggregate invariants. Usually a
	// programming error; transports should not expose the message verbatim.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeTimeout marks operations abandoned due to context expiry.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. It may wrap an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
		de = nil
	}
	return false
}

// Is is a readable alias for HasCode at call sites that branch on codes.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
