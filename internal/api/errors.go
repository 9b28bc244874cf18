package api

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. The set is closed; callers branch on Kind (or errors.Is
// with the sentinels below) to decide how to present a failure.
const (
	KindValidation         = "VALIDATION_ERROR"
	KindUserInactive       = "USER_INACTIVE"
	KindInvalidCredentials = "INVALID_CREDENTIALS"
	KindServerError        = "SERVER_ERROR"
	KindUnknown            = "UNKNOWN_ERROR"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrValidation is returned when login input violates a precondition.
	// Recoverable: the caller corrects the input.
	ErrValidation = errors.New("validation error")

	// ErrUserInactive is returned when the account is disabled
	// server-side. Terminal for this login attempt.
	ErrUserInactive = errors.New("user inactive")

	// ErrInvalidCredentials is returned on a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrServer is returned on a 5xx response. Transient, safe to retry.
	ErrServer = errors.New("server error")

	// ErrUnknown is the catch-all for unmapped failures.
	ErrUnknown = errors.New("unknown error")
)

// Error is the structured failure returned by Login. It carries a
// machine-readable kind, an optional user-facing title, and for
// validation failures the full list of violated rules.
type Error struct {
	// Kind is one of the Kind* constants.
	Kind string
	// Title is a short user-facing heading, when the server supplies one.
	Title string
	// Message is the most specific human-readable description available.
	Message string
	// Violations lists every violated login precondition, not just the
	// first. Only set for KindValidation.
	Violations []string
	// Err is the underlying transport error, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Violations, "; "))
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches one of the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUserInactive:
		return e.Kind == KindUserInactive
	case ErrInvalidCredentials:
		return e.Kind == KindInvalidCredentials
	case ErrServer:
		return e.Kind == KindServerError
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// NewValidationError builds a KindValidation error from the full list of
// violated rules.
func NewValidationError(violations []string) *Error {
	return &Error{
		Kind:       KindValidation,
		Message:    "invalid login input",
		Violations: violations,
	}
}
