package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind names a protocol error reported to clients.
type ErrorKind string

const (
	// InvalidPayload: the frame is not valid JSON, or a required field is missing or mistyped.
	InvalidPayload ErrorKind = "InvalidPayload"
	// MethodNotFound: no handler is registered for the method.
	MethodNotFound ErrorKind = "MethodNotFound"
)

var (
	// ErrMethodExists is returned when registering a method twice.
	ErrMethodExists = errors.New("method already registered")
	// ErrInvalidMethod is returned when registering an empty method name or a nil handler.
	ErrInvalidMethod = errors.New("method name and handler are required")
	// ErrMissingPayload is wrapped when a request carries no payload.
	ErrMissingPayload = errors.New("payload is required")
)

// Error is a protocol error that is reported to the client as kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid wraps err as an InvalidPayload error.
func Invalid(err error) error {
	return &Error{Kind: InvalidPayload, Err: err}
}

// KindOf returns the protocol error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}
