// Package domainerrors defines the tagged error kinds shared by services and
// the transport boundary. Services attach a Code to every failure; the
// boundary translates codes to HTTP statuses and envelope types in one place
// instead of relying on error-type hierarchies.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeValidation marks syntactically invalid input caught at the boundary.
	CodeValidation Code = "validation_error"
	// CodeBusiness marks a business-rule violation, e.g. a referenced area
	// that does not exist among current rows.
	CodeBusiness Code = "business_logic_error"
	// CodeDeactivated marks a resubmission of a functional id that exists but
	// was explicitly ended. The id is terminal; implicit recreation is refused.
	CodeDeactivated Code = "deactivated_error"
	// CodeNotFound marks a read or delete that matched no current row visible
	// to the caller.
	CodeNotFound Code = "not_found_error"
	// CodeConflict marks a unique-constraint rejection, typically a concurrent
	// resubmission race. The caller must resubmit; nothing is retried here.
	CodeConflict Code = "duplicate_error"
	// CodeUnauthorized marks a missing or invalid bearer token.
	CodeUnauthorized Code = "authentication_error"
	// CodeForbidden marks a caller without the required role.
	CodeForbidden Code = "authorization_error"
	// CodeUnavailable marks an unreachable store or broker.
	CodeUnavailable Code = "service_unavailable_error"
	// CodeInternal marks everything else. Details are logged, never surfaced.
	CodeInternal Code = "server_error"
)

// Error is a domain failure with a machine-readable code and a
// human-readable message safe to surface to callers.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the surfaceable message from err. Non-domain errors map
// to a generic message so internals never leak.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBusiness, CodeDeactivated:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
