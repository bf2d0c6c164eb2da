/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, an error kind, a user-facing message and an HTTP status code.
*/
package errs

import (
	"errors"
	"fmt"
	"strings"

	"dojo/internal/pkg/logx"
)

// Kind classifies an error for callers that only care about the category.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindForbidden Kind = "forbidden"
	KindConflict  Kind = "conflict"
	KindInvalid   Kind = "invalid"
	KindInternal  Kind = "internal"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind is the taxonomy bucket the code belongs to.
	Kind Kind

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s): %s", e.Code, e.Kind, e.Message)
}

// NewError constructs a *CustomError from a predefined error code.
// The optional details are printf arguments for messages that carry placeholders.
// An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = kindStatus[customErr.Kind]
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.")
		}
	}

	return &customErr
}

// Is reports whether err is a CustomError carrying the given code.
func Is(err error, code int) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code == code
	}
	return false
}

// KindOf returns the Kind of err, or KindInternal for errors outside this package.
func KindOf(err error) Kind {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Kind
	}
	return KindInternal
}
