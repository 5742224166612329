package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error so transports can map it to a response and
// callers can branch without string matching.
type Code string

const (
	// CodeValidation marks malformed input. Caller's fault, never retried.
	CodeValidation Code = "validation_error"
	// CodeDuplicateSerial marks a serial-number uniqueness conflict.
	CodeDuplicateSerial Code = "duplicate_serial"
	// CodeNotFound marks an unknown asset or resource id.
	CodeNotFound Code = "not_found"
	// CodeInvalidState marks a transition that is illegal from the current status.
	CodeInvalidState Code = "invalid_state"
	// CodeConflict marks an optimistic-concurrency conflict. Safe to retry the item.
	CodeConflict Code = "concurrent_modification"
	// CodeLedgerUnavailable marks a best-effort ledger failure. Never propagated
	// as the item's failure.
	CodeLedgerUnavailable Code = "ledger_unavailable"
	// CodeBadRequest marks a malformed request at the transport boundary.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation marks a broken model invariant at construction.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
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

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
