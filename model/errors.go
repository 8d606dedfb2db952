package model

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes.
const (
	ErrNotFound                = "NOT_FOUND"
	ErrDuplicateValues         = "DUPLICATE_VALUES"
	ErrMissingValues           = "MISSING_VALUES"
	ErrInvalidValues           = "INVALID_VALUES"
	ErrInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrGone                    = "GONE"
	ErrUnauthorized            = "UNAUTHORIZED"
	ErrInternalError           = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard error shape produced by the engine and
// translated into a transport response at the boundary. It implements the
// error interface. Details carries the offending attribute names where the
// detecting component attaches them (duplicated names, missing fields).
type ErrorEnvelope struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Details, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err is an ErrorEnvelope carrying the given code.
func HasCode(err error, code string) bool {
	var ee *ErrorEnvelope
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewDuplicateValuesError returns a DUPLICATE_VALUES error naming every
// duplicated value.
func NewDuplicateValuesError(msg string, values ...string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrDuplicateValues, Message: msg, Details: values}
}

// NewMissingValuesError returns a MISSING_VALUES error naming the absent
// attributes.
func NewMissingValuesError(attributes ...string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrMissingValues,
		Message: "One or more required values are missing",
		Details: attributes,
	}
}

// NewInvalidValuesError returns an INVALID_VALUES error naming the rejected
// attributes.
func NewInvalidValuesError(attributes ...string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInvalidValues,
		Message: "One or more values are invalid",
		Details: attributes,
	}
}

// NewInsufficientPermissionsError returns an INSUFFICIENT_PERMISSIONS error.
// The message is deliberately generic so callers cannot tell which clause of
// a composed permission check failed.
func NewInsufficientPermissionsError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInsufficientPermissions,
		Message: "Missing permission to perform this action",
	}
}

// NewGoneError returns a GONE error for an entity that existed but was
// removed.
func NewGoneError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrGone, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}
