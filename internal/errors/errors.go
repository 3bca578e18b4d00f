// Package errors defines the coded application errors shared by the task
// store, the reminder engine and the front ends.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown      = "UNKNOWN"
	CodeInvalidInput = "INVALID_INPUT"
	CodePersistence  = "PERSISTENCE"
	CodeDelivery     = "DELIVERY"
	CodeNotFound     = "NOT_FOUND"
	CodeConfig       = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a coded application error with an optional cause.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

// Code returns the error code.
func (e *Error) Code() string {
	return e.code
}

// Message returns the message without the cause.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// NewInvalidInput reports input that failed validation. It is never retried.
func NewInvalidInput(message string, cause error) error {
	return &Error{code: CodeInvalidInput, message: message, err: cause}
}

// InvalidInputf formats an invalid input error without a cause.
func InvalidInputf(format string, args ...any) error {
	return &Error{code: CodeInvalidInput, message: fmt.Sprintf(format, args...)}
}

// NewPersistence wraps a storage failure.
func NewPersistence(message string, cause error) error {
	return &Error{code: CodePersistence, message: message, err: cause}
}

// NewDelivery wraps a failure to reach a notification recipient.
func NewDelivery(message string, cause error) error {
	return &Error{code: CodeDelivery, message: message, err: cause}
}

// NewNotFound reports a missing task or recipient.
func NewNotFound(message string) error {
	return &Error{code: CodeNotFound, message: message}
}

// NewConfig wraps a configuration failure.
func NewConfig(message string, cause error) error {
	return &Error{code: CodeConfig, message: message, err: cause}
}

// IsInvalidInput reports whether err carries CodeInvalidInput.
func IsInvalidInput(err error) bool { return Code(err) == CodeInvalidInput }

// IsPersistence reports whether err carries CodePersistence.
func IsPersistence(err error) bool { return Code(err) == CodePersistence }

// IsDelivery reports whether err carries CodeDelivery.
func IsDelivery(err error) bool { return Code(err) == CodeDelivery }

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return Code(err) == CodeNotFound }

// UserMessage returns the message of the first application error in the
// chain, without wrapped causes, falling back to err.Error().
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.message
	}
	return err.Error()
}
