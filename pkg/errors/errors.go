package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so wrapped instances compare equal to sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. The first block is the payroll/approval taxonomy; the
// second covers generic transport concerns.
var (
	// ErrConfiguration flags a missing or ambiguous approval chain or an
	// unregistered approver kind. Fatal misconfiguration, never retried.
	ErrConfiguration         = New("CONFIGURATION_ERROR", http.StatusInternalServerError, "approval configuration invalid")
	ErrNoApprovalChain       = New("NO_APPROVAL_CHAIN", http.StatusInternalServerError, "no approval chain configured for request type")
	ErrDataIntegrity         = New("DATA_INTEGRITY", http.StatusUnprocessableEntity, "inconsistent input data")
	ErrNotAuthorized         = New("NOT_AUTHORIZED", http.StatusForbidden, "actor is not the expected approver")
	ErrConcurrentModification = New("CONCURRENT_MODIFICATION", http.StatusConflict, "entity was modified concurrently")
	ErrOverpayment           = New("OVERPAYMENT", http.StatusUnprocessableEntity, "payment exceeds remaining balance")
	ErrInvalidArgument       = New("INVALID_ARGUMENT", http.StatusBadRequest, "invalid argument")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
