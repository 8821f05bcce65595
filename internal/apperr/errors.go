// Package apperr defines the error kinds the manager's HTTP layer maps to
// status codes, per spec.md §7.
package apperr

import "errors"

// Kind categorizes an error for transport-layer handling.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindTransportTransient
	KindTransportPermanent
	KindInternal
)

// Error wraps an underlying cause with a Kind the caller can switch on
// via errors.As, instead of string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Validation builds a KindValidation error with the given user-facing
// message.
func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Transient wraps cause as a KindTransportTransient error.
func Transient(message string, cause error) error {
	return &Error{Kind: KindTransportTransient, Message: message, Cause: cause}
}

// Internal wraps cause as a KindInternal error.
func Internal(message string, cause error) error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// As is a typed convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
