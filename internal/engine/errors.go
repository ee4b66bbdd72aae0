package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMediaUnavailable   = errors.New("could not access media sources")
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	ErrAlreadyJoined      = errors.New("already joined a room")
	ErrClosed             = errors.New("engine closed")
)

// SessionError annotates a failure with the operation that produced it.
type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
